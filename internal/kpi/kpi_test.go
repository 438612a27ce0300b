// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package kpi

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/biomed-rag/internal/llm"
	"github.com/pdiddy/biomed-rag/pkg/types"
)

type fakeTokens struct {
	n    int
	err  error
	text string
}

func (f *fakeTokens) CountTokens(_ context.Context, text string) (int, error) {
	f.text = text
	return f.n, f.err
}

type fakeEmbedder struct {
	vecs  [][]float32
	err   error
	input []string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.input = texts
	return f.vecs, f.err
}

func report(scores ...int) *types.EvaluationReport {
	return &types.EvaluationReport{
		RelevanceToQuestion:  types.RubricScore{Score: scores[0]},
		ClarityAndStructure:  types.RubricScore{Score: scores[1]},
		FaithfulnessToSource: types.RubricScore{Score: scores[2]},
		CitationAccuracy:     types.RubricScore{Score: scores[3]},
		RoleAwareness:        types.RubricScore{Score: scores[4]},
	}
}

func TestCountCitations(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"Effective for RA [PMID123] and also [PMC456].", 2},
		{"No citations here.", 0},
		{"[PMID] [PMC] [pmid12] [PMIDx1] PMID123", 0},
		{"[PMID1][PMID2][PMC3]", 3},
		{"[Doc1] and [unknown] do not count", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CountCitations(tt.in), tt.in)
	}
}

func TestAverageScore(t *testing.T) {
	avg, err := AverageScore(report(5, 4, 5, 3, 5))
	require.NoError(t, err)
	assert.Equal(t, 4.4, avg)

	avg, err = AverageScore(report(5, 4, 4, 4, 4))
	require.NoError(t, err)
	assert.Equal(t, 4.2, avg)

	avg, err = AverageScore(report(1, 1, 1, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 1.0, avg)
}

func TestAverageScore_Malformed(t *testing.T) {
	_, err := AverageScore(nil)
	assert.ErrorIs(t, err, ErrMalformedReport)

	_, err = AverageScore(report(5, 4, 0, 3, 5))
	assert.ErrorIs(t, err, ErrMalformedReport, "a missing dimension is never averaged as zero")
}

func TestCosineSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}))
	assert.Equal(t, 0.7071, CosineSimilarity([]float32{1, 0}, []float32{1, 1}))
}

func TestCompute(t *testing.T) {
	tc := &fakeTokens{n: 42}
	emb := &fakeEmbedder{vecs: [][]float32{{1, 0}, {1, 1}}}
	docs := []types.Document{{Content: "a"}, {Content: "b"}, {Content: "c"}}

	rec, err := Compute(context.Background(), tc, emb, Input{
		Probe:     "Question: q",
		Summary:   "Use drug X [PMID1] [PMC2].",
		Report:    report(5, 4, 5, 3, 5),
		Documents: docs,
	})
	require.NoError(t, err)
	require.NotNil(t, rec.AvgLLMScore)
	assert.Equal(t, 4.4, *rec.AvgLLMScore)
	assert.Equal(t, 2, rec.NumCitations)
	assert.Equal(t, 42, rec.NumTokens)
	assert.Equal(t, 3, rec.NumSourceDocuments)
	assert.Equal(t, 0.7071, rec.SemanticSimilarityToQuery)

	assert.Equal(t, "Use drug X [PMID1] [PMC2].", tc.text)
	assert.Equal(t, []string{"Question: q", "Use drug X [PMID1] [PMC2]."}, emb.input)
}

func TestCompute_NoReport(t *testing.T) {
	rec, err := Compute(context.Background(), &fakeTokens{n: 1}, &fakeEmbedder{vecs: [][]float32{{1}, {1}}}, Input{Summary: "s"})
	require.NoError(t, err)
	assert.Nil(t, rec.AvgLLMScore)
	assert.Zero(t, rec.NumSourceDocuments)
}

func TestCompute_RemoteFailures(t *testing.T) {
	remote := errors.Join(llm.ErrRemoteService, errors.New("down"))

	_, err := Compute(context.Background(), &fakeTokens{err: remote}, &fakeEmbedder{}, Input{Summary: "s"})
	assert.ErrorIs(t, err, llm.ErrRemoteService)

	_, err = Compute(context.Background(), &fakeTokens{n: 1}, &fakeEmbedder{err: remote}, Input{Probe: "p", Summary: "s"})
	assert.ErrorIs(t, err, llm.ErrRemoteService)
}

func TestSimilarity_BlankSummary(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("'$.input' is invalid")}

	for _, summary := range []string{"", "  \n"} {
		sim, err := Similarity(context.Background(), emb, "Question: q\nGeneral Context: c", summary)
		require.NoError(t, err)
		assert.Zero(t, sim)
	}
	assert.Nil(t, emb.input, "blank text is never embedded")
}

func TestCompute_BlankSummary(t *testing.T) {
	tc := &fakeTokens{err: errors.New("unexpected call")}
	emb := &fakeEmbedder{err: errors.New("unexpected call")}

	rec, err := Compute(context.Background(), tc, emb, Input{
		Probe:     "Question: q\nGeneral Context: c",
		Documents: []types.Document{{Content: "a"}},
	})
	require.NoError(t, err)
	assert.Zero(t, rec.NumTokens)
	assert.Zero(t, rec.NumCitations)
	assert.Zero(t, rec.SemanticSimilarityToQuery)
	assert.Equal(t, 1, rec.NumSourceDocuments)
	assert.Empty(t, tc.text)
	assert.Nil(t, emb.input)
}

func TestCompute_MalformedReport(t *testing.T) {
	_, err := Compute(context.Background(), &fakeTokens{n: 1}, &fakeEmbedder{vecs: [][]float32{{1}, {1}}}, Input{
		Summary: "s",
		Report:  &types.EvaluationReport{},
	})
	assert.ErrorIs(t, err, ErrMalformedReport)
}
