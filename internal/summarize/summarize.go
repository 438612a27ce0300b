// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summarize writes a role-tailored, citation-bearing summary of the
// retrieved Documents with one deterministic generation call.
package summarize

import (
	"context"
	"fmt"

	"github.com/pdiddy/biomed-rag/internal/llm"
	"github.com/pdiddy/biomed-rag/pkg/types"
)

// Summarizer turns a question and retrieved Documents into a summary.
type Summarizer struct {
	gen   llm.Generator
	model string
}

// New returns a Summarizer calling model through gen.
func New(gen llm.Generator, model string) *Summarizer {
	return &Summarizer{gen: gen, model: model}
}

// Summarize returns the model's reply verbatim.
func (s *Summarizer) Summarize(ctx context.Context, role, question string, docs []types.Document) (string, error) {
	prompt, err := renderRequest(role, question, docs)
	if err != nil {
		return "", err
	}
	out, err := s.gen.Generate(ctx, llm.Request{
		Model:  s.model,
		System: Instruction(role),
		User:   prompt,
	})
	if err != nil {
		return "", fmt.Errorf("generating summary: %w", err)
	}
	return out, nil
}
