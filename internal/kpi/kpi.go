// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package kpi computes the post-hoc metrics recorded for a generated summary.
package kpi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/pdiddy/biomed-rag/internal/index"
	"github.com/pdiddy/biomed-rag/internal/llm"
	"github.com/pdiddy/biomed-rag/pkg/types"
)

// ErrMalformedReport is returned when a score is requested from an absent or
// incomplete evaluation report.
var ErrMalformedReport = errors.New("evaluation report is not in the expected shape")

var citationRe = regexp.MustCompile(`\[PM(?:C|ID)\d+\]`)

// CountCitations counts [PMID<n>] and [PMC<n>] tags in summary.
func CountCitations(summary string) int {
	return len(citationRe.FindAllStringIndex(summary, -1))
}

// AverageScore returns the mean of the five rubric scores rounded to two
// decimals.
func AverageScore(report *types.EvaluationReport) (float64, error) {
	if report == nil {
		return 0, fmt.Errorf("%w: no report", ErrMalformedReport)
	}
	if err := report.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}
	scores := report.Scores()
	total := 0
	for _, s := range scores {
		total += s.Score
	}
	return round(float64(total)/float64(len(scores)), 2), nil
}

// CosineSimilarity returns the cosine of a and b rounded to four decimals.
func CosineSimilarity(a, b []float32) float64 {
	return round(index.Cosine(a, b), 4)
}

// Similarity embeds probe and summary in one call and returns their cosine
// similarity. A blank probe or summary has similarity 0 and is not sent; the
// embeddings API rejects empty input.
func Similarity(ctx context.Context, emb llm.Embedder, probe, summary string) (float64, error) {
	if strings.TrimSpace(probe) == "" || strings.TrimSpace(summary) == "" {
		return 0, nil
	}
	vecs, err := emb.Embed(ctx, []string{probe, summary})
	if err != nil {
		return 0, fmt.Errorf("embedding probe and summary: %w", err)
	}
	if len(vecs) != 2 {
		return 0, fmt.Errorf("embedding probe and summary: got %d vectors", len(vecs))
	}
	if len(vecs[0]) != len(vecs[1]) {
		return 0, fmt.Errorf("%w: probe %d, summary %d", index.ErrDimension, len(vecs[0]), len(vecs[1]))
	}
	return CosineSimilarity(vecs[0], vecs[1]), nil
}

// Input carries everything Compute measures.
type Input struct {
	Probe   string
	Summary string

	// Report is nil when evaluation was skipped or degraded. The average
	// score is then left unset.
	Report *types.EvaluationReport

	Documents []types.Document
}

// Compute assembles the KPI record. Remote failures are returned.
func Compute(ctx context.Context, tc llm.TokenCounter, emb llm.Embedder, in Input) (types.KPIRecord, error) {
	rec := types.KPIRecord{
		NumCitations:       CountCitations(in.Summary),
		NumSourceDocuments: len(in.Documents),
	}

	if in.Report != nil {
		avg, err := AverageScore(in.Report)
		if err != nil {
			return types.KPIRecord{}, err
		}
		rec.AvgLLMScore = &avg
	}

	if strings.TrimSpace(in.Summary) != "" {
		n, err := tc.CountTokens(ctx, in.Summary)
		if err != nil {
			return types.KPIRecord{}, fmt.Errorf("counting summary tokens: %w", err)
		}
		rec.NumTokens = n
	}

	sim, err := Similarity(ctx, emb, in.Probe, in.Summary)
	if err != nil {
		return types.KPIRecord{}, err
	}
	rec.SemanticSimilarityToQuery = sim
	return rec, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
