// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/biomed-rag/internal/corpus"
	"github.com/pdiddy/biomed-rag/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id, role string, created time.Time) types.RunReport {
	avg := 4.4
	return types.RunReport{
		RunID:           id,
		CreatedAt:       created,
		Role:            role,
		Question:        "What are the treatment options for Crohn's disease?",
		StepBackSummary: "Inflammatory bowel disease therapy.",
		Topics:          []string{"crohn's disease", "infliximab"},
		Probe:           "Question: q\nGeneral Context: c",
		Sources: []types.DocumentMetadata{
			{Source: types.SchemaPubMed, PMID: "111", Title: "T", ChunkID: types.AbstractChunkID, Section: types.SectionAbstract},
		},
		Summary: "Infliximab is effective [PMID111].",
		Evaluation: &types.EvaluationReport{
			RelevanceToQuestion:  types.RubricScore{Score: 5, Reason: "on topic"},
			ClarityAndStructure:  types.RubricScore{Score: 4, Reason: "clear"},
			FaithfulnessToSource: types.RubricScore{Score: 5, Reason: "grounded"},
			CitationAccuracy:     types.RubricScore{Score: 3, Reason: "partial"},
			RoleAwareness:        types.RubricScore{Score: 5, Reason: "tailored"},
		},
		KPIs: types.KPIRecord{
			AvgLLMScore:               &avg,
			NumCitations:              1,
			NumTokens:                 42,
			NumSourceDocuments:        1,
			SemanticSimilarityToQuery: 0.8123,
		},
	}
}

func TestParseCache_RoundTrip(t *testing.T) {
	s := testStore(t)
	cache := s.ParseCache()
	ctx := context.Background()

	key := corpus.CacheKey{Schema: types.SchemaPMC, ContentHash: "abc", IncludeBody: true}
	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	year := 2021
	arts := []types.Article{{
		Schema: types.SchemaPMC, ID: "900", Title: "T", Abstract: "A",
		Keywords: []string{"asthma"}, PublicationYear: &year,
	}}
	require.NoError(t, cache.Put(ctx, key, arts))

	got, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, arts, got)

	t.Run("other body mode misses", func(t *testing.T) {
		_, ok, err := cache.Get(ctx, corpus.CacheKey{Schema: types.SchemaPMC, ContentHash: "abc"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("other hash misses", func(t *testing.T) {
		_, ok, err := cache.Get(ctx, corpus.CacheKey{Schema: types.SchemaPMC, ContentHash: "abd", IncludeBody: true})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("empty result is cached", func(t *testing.T) {
		empty := corpus.CacheKey{Schema: types.SchemaPubMed, ContentHash: "zzz"}
		require.NoError(t, cache.Put(ctx, empty, nil))
		got, ok, err := cache.Get(ctx, empty)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, got)
	})
}

func TestParseCache_Prune(t *testing.T) {
	s := testStore(t)
	cache := s.ParseCache()
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, corpus.CacheKey{Schema: types.SchemaPMC, ContentHash: "a"}, nil))

	n, err := cache.Prune(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = cache.Prune(ctx, -time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRuns_SaveListGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveRun(ctx, sampleRun("r1", "Pediatrician", base)))
	require.NoError(t, s.SaveRun(ctx, sampleRun("r2", "oncologist", base.Add(time.Minute))))
	noEval := sampleRun("r3", "pediatrician", base.Add(2*time.Minute))
	noEval.Evaluation = nil
	noEval.KPIs.AvgLLMScore = nil
	require.NoError(t, s.SaveRun(ctx, noEval))

	runs, err := s.ListRuns(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "r3", runs[0].RunID, "newest first")
	assert.Equal(t, "r1", runs[2].RunID)

	runs, err = s.ListRuns(ctx, ListOptions{Role: "PEDIATRICIAN"})
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = s.ListRuns(ctx, ListOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	runs, err = s.ListRuns(ctx, ListOptions{Query: "Crohn"})
	require.NoError(t, err)
	assert.Len(t, runs, 3)

	got, err := s.GetRun(ctx, "r1")
	require.NoError(t, err)
	want := sampleRun("r1", "Pediatrician", base)
	assert.Equal(t, want.Topics, got.Topics)
	assert.Equal(t, want.Sources, got.Sources)
	assert.Equal(t, want.Evaluation, got.Evaluation)
	assert.Equal(t, want.KPIs, got.KPIs)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))

	got, err = s.GetRun(ctx, "r3")
	require.NoError(t, err)
	assert.Nil(t, got.Evaluation)
	assert.Nil(t, got.KPIs.AvgLLMScore)

	_, err = s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSaveRun_EmptyID(t *testing.T) {
	s := testStore(t)
	assert.Error(t, s.SaveRun(context.Background(), types.RunReport{}))
}

func TestSaveRun_UnencodableKPIs(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	r := sampleRun("r1", "gp", time.Now())
	r.KPIs.SemanticSimilarityToQuery = math.NaN()

	err := s.SaveRun(ctx, r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kpis")

	_, err = s.GetRun(ctx, "r1")
	assert.ErrorIs(t, err, ErrRunNotFound, "nothing is written")
}

func TestRuns_CorruptRowsAreReported(t *testing.T) {
	tests := []struct {
		name   string
		column string
		value  string
	}{
		{name: "topics", column: "topics", value: `["unterminated`},
		{name: "kpis", column: "kpis", value: `{"num_tokens": "many"}`},
		{name: "evaluation", column: "evaluation", value: `not json`},
		{name: "timestamp", column: "created_at", value: "yesterday"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testStore(t)
			ctx := context.Background()
			require.NoError(t, s.SaveRun(ctx, sampleRun("r1", "gp", time.Now())))
			_, err := s.db.ExecContext(ctx, `UPDATE runs SET `+tt.column+` = ? WHERE id = ?`, tt.value, "r1")
			require.NoError(t, err)

			_, err = s.GetRun(ctx, "r1")
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrRunNotFound)
			assert.Contains(t, err.Error(), "run r1")

			_, err = s.ListRuns(ctx, ListOptions{})
			assert.Error(t, err)
		})
	}
}

func TestExport(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveRun(ctx, sampleRun("r1", "gp", base)))
	require.NoError(t, s.SaveRun(ctx, sampleRun("r2", "scientist", base.Add(time.Minute))))

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, s.ExportJSON(ctx, &buf, ListOptions{Role: "gp"}))
		var runs []types.RunReport
		require.NoError(t, json.Unmarshal(buf.Bytes(), &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, "r1", runs[0].RunID)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, s.ExportYAML(ctx, &buf, ListOptions{}))
		var runs []map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &runs))
		require.Len(t, runs, 2)
		assert.Equal(t, "r2", runs[0]["run_id"])
	})
}
