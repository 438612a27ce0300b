// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evaluate scores a summary against a fixed five-dimension rubric
// with a judge model. A reply that cannot be read as a complete report is
// kept as raw text; that degraded result is not an error.
package evaluate

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/pdiddy/biomed-rag/internal/llm"
	"github.com/pdiddy/biomed-rag/pkg/types"
)

const judgeInstruction = "You are a senior biomedical research evaluator."

var rubricPromptTmpl = template.Must(template.New("rubric").Parse(`You are an expert medical evaluator reviewing the quality of an automatically generated summary.

Please evaluate the summary according to the following criteria. For each criterion, return:
- A score from 1 to 5 (5 = excellent)
- A short explanation of the score (1-2 sentences)

---

User Role: {{.Role}}

Question: {{.Question}}

Summary to evaluate:
{{.Summary}}

Evaluation Criteria:
1. **Relevance to Question**: How well does the summary address the user's question?
2. **Clarity and Structure**: Is the summary clearly written, well-organized, and easy to follow?
3. **Faithfulness to Source**: Does the summary rely on verifiable information from the cited articles? Avoids hallucination?
4. **Citation Accuracy**: Are citations included and do they correspond to the claims made?
5. **User Role Awareness**: Is the summary tailored to the role of the user (e.g., clinician, researcher)?

Please return the evaluation in the following JSON format:
{
  "relevance_to_question": {"score": X, "reason": "..."},
  "clarity_and_structure": {"score": X, "reason": "..."},
  "faithfulness_to_source": {"score": X, "reason": "..."},
  "citation_accuracy": {"score": X, "reason": "..."},
  "role_awareness": {"score": X, "reason": "..."}
}
`))

// Result is the judge's verdict. Exactly one of Report and Raw is set.
type Result struct {
	Report *types.EvaluationReport
	Raw    string
}

// Degraded reports whether the judge reply could not be parsed.
func (r Result) Degraded() bool {
	return r.Report == nil
}

// Evaluator calls the judge model.
type Evaluator struct {
	gen    llm.Generator
	model  string
	schema *llm.Schema
	log    zerolog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Evaluator) { e.log = log }
}

// New returns an Evaluator calling model through gen.
func New(gen llm.Generator, model string, opts ...Option) (*Evaluator, error) {
	schema, err := llm.SchemaFor("evaluation_report", types.EvaluationReport{})
	if err != nil {
		return nil, err
	}
	e := &Evaluator{gen: gen, model: model, schema: schema, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Evaluate scores summary. Only remote failures are returned as errors.
func (e *Evaluator) Evaluate(ctx context.Context, role, question, summary string) (Result, error) {
	var buf bytes.Buffer
	err := rubricPromptTmpl.Execute(&buf, struct {
		Role, Question, Summary string
	}{role, question, summary})
	if err != nil {
		return Result{}, fmt.Errorf("executing rubric template: %w", err)
	}

	reply, err := e.gen.Generate(ctx, llm.Request{
		Model:  e.model,
		System: judgeInstruction,
		User:   buf.String(),
		Schema: e.schema,
	})
	if err != nil {
		return Result{}, fmt.Errorf("evaluating summary: %w", err)
	}

	report, err := Parse(e.schema, reply)
	if err != nil {
		e.log.Warn().Err(err).Msg("could not parse evaluation response, keeping raw text")
		return Result{Raw: reply}, nil
	}
	return Result{Report: report}, nil
}

// Parse reads a judge reply, tolerating code fences, and checks that every
// rubric dimension is present and scored 1-5.
func Parse(schema *llm.Schema, reply string) (*types.EvaluationReport, error) {
	var report types.EvaluationReport
	if err := llm.DecodeJSON(schema, reply, &report); err != nil {
		return nil, err
	}
	if err := report.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrInvalidOutput, err)
	}
	return &report, nil
}
