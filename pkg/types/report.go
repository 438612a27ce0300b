// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// RubricKeys lists the five evaluation dimensions in report order.
var RubricKeys = []string{
	"relevance_to_question",
	"clarity_and_structure",
	"faithfulness_to_source",
	"citation_accuracy",
	"role_awareness",
}

// RubricScore is the judge's verdict on one dimension.
type RubricScore struct {
	Score  int    `json:"score" yaml:"score"`
	Reason string `json:"reason" yaml:"reason"`
}

// EvaluationReport holds one RubricScore per rubric dimension.
type EvaluationReport struct {
	RelevanceToQuestion  RubricScore `json:"relevance_to_question" yaml:"relevance_to_question"`
	ClarityAndStructure  RubricScore `json:"clarity_and_structure" yaml:"clarity_and_structure"`
	FaithfulnessToSource RubricScore `json:"faithfulness_to_source" yaml:"faithfulness_to_source"`
	CitationAccuracy     RubricScore `json:"citation_accuracy" yaml:"citation_accuracy"`
	RoleAwareness        RubricScore `json:"role_awareness" yaml:"role_awareness"`
}

// Scores returns the rubric scores in RubricKeys order.
func (r EvaluationReport) Scores() []RubricScore {
	return []RubricScore{
		r.RelevanceToQuestion,
		r.ClarityAndStructure,
		r.FaithfulnessToSource,
		r.CitationAccuracy,
		r.RoleAwareness,
	}
}

// Validate reports an error when any dimension is missing or scored outside 1-5.
func (r EvaluationReport) Validate() error {
	for i, s := range r.Scores() {
		if s.Score < 1 || s.Score > 5 {
			return fmt.Errorf("%s: score %d out of range [1,5]", RubricKeys[i], s.Score)
		}
	}
	return nil
}

// KPIRecord holds the post-hoc metrics for one generated summary.
// AvgLLMScore is nil when no structured evaluation was available.
type KPIRecord struct {
	AvgLLMScore               *float64 `json:"avg_llm_score,omitempty" yaml:"avg_llm_score,omitempty"`
	NumCitations              int      `json:"num_citations" yaml:"num_citations"`
	NumTokens                 int      `json:"num_tokens" yaml:"num_tokens"`
	NumSourceDocuments        int      `json:"num_source_documents" yaml:"num_source_documents"`
	SemanticSimilarityToQuery float64  `json:"semantic_similarity_to_query" yaml:"semantic_similarity_to_query"`
}

// RunReport is the complete result of answering one question.
type RunReport struct {
	RunID           string    `json:"run_id" yaml:"run_id"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	Role            string    `json:"role" yaml:"role"`
	Question        string    `json:"question" yaml:"question"`
	StepBackSummary string    `json:"step_back_summary" yaml:"step_back_summary"`
	Topics          []string  `json:"topics" yaml:"topics"`
	Probe           string    `json:"probe" yaml:"probe"`

	// Sources is the metadata of the retrieved Documents, best match first.
	Sources []DocumentMetadata `json:"sources" yaml:"sources"`

	Summary string `json:"summary" yaml:"summary"`

	// Evaluation is nil when the judge reply could not be parsed or evaluation
	// was skipped. EvaluationRaw then holds the unparsed reply, if any.
	Evaluation    *EvaluationReport `json:"evaluation,omitempty" yaml:"evaluation,omitempty"`
	EvaluationRaw string            `json:"evaluation_raw,omitempty" yaml:"evaluation_raw,omitempty"`

	KPIs KPIRecord `json:"kpis" yaml:"kpis"`
}
