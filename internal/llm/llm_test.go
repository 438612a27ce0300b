// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	reply string
	err   error
	got   Request
}

func (f *fakeGenerator) Generate(_ context.Context, req Request) (string, error) {
	f.got = req
	return f.reply, f.err
}

type stepBack struct {
	Summary string   `json:"summary"`
	Topics  []string `json:"topics"`
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n[1, 2]\n```", "[1, 2]"},
		{"prose around fence", "Here you go:\n```json\n{}\n```\nThanks", "{}"},
		{"no fence", "  {\"a\": 1}\n", `{"a": 1}`},
		{"plain text", "not json", "not json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestSchemaFor(t *testing.T) {
	s, err := SchemaFor("step_back", &stepBack{})
	require.NoError(t, err)
	assert.Equal(t, "step_back", s.Name)

	data, err := json.Marshal(s.Definition)
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, "object", schema["type"])
	assert.ElementsMatch(t, []any{"summary", "topics"}, schema["required"])
}

func TestGenerateJSON(t *testing.T) {
	t.Run("valid reply", func(t *testing.T) {
		g := &fakeGenerator{reply: `{"summary": "IBD therapy", "topics": ["crohn's disease", "infliximab"]}`}
		var out stepBack
		require.NoError(t, GenerateJSON(context.Background(), g, Request{Model: "m"}, "step_back", &out))
		assert.Equal(t, "IBD therapy", out.Summary)
		assert.Equal(t, []string{"crohn's disease", "infliximab"}, out.Topics)
		require.NotNil(t, g.got.Schema)
		assert.Equal(t, "step_back", g.got.Schema.Name)
	})

	t.Run("fenced reply", func(t *testing.T) {
		g := &fakeGenerator{reply: "```json\n{\"summary\": \"s\", \"topics\": []}\n```"}
		var out stepBack
		require.NoError(t, GenerateJSON(context.Background(), g, Request{}, "step_back", &out))
		assert.Equal(t, "s", out.Summary)
	})

	t.Run("missing key", func(t *testing.T) {
		g := &fakeGenerator{reply: `{"summary": "s"}`}
		var out stepBack
		err := GenerateJSON(context.Background(), g, Request{}, "step_back", &out)
		assert.ErrorIs(t, err, ErrInvalidOutput)
	})

	t.Run("not json", func(t *testing.T) {
		g := &fakeGenerator{reply: `["asthma", "airway inflammation"`}
		var out stepBack
		err := GenerateJSON(context.Background(), g, Request{}, "step_back", &out)
		assert.ErrorIs(t, err, ErrInvalidOutput)
	})

	t.Run("remote failure passes through", func(t *testing.T) {
		remote := errors.Join(ErrRemoteService, errors.New("boom"))
		g := &fakeGenerator{err: remote}
		var out stepBack
		err := GenerateJSON(context.Background(), g, Request{}, "step_back", &out)
		assert.ErrorIs(t, err, ErrRemoteService)
		assert.NotErrorIs(t, err, ErrInvalidOutput)
	})
}
