// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package topics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/biomed-rag/internal/llm"
	"github.com/pdiddy/biomed-rag/pkg/types"
)

const schemaUnsupported = `{"error":{"message":"Invalid parameter: 'response_format' of type 'json_schema' is not supported with this model.","type":"invalid_request_error","param":"response_format","code":null}}`

type seenRequest struct {
	model     string
	hasFormat bool
}

// serveChat starts a chat completions endpoint answering the step-back and
// broadening prompts. With rejectSchemas it refuses any response format the
// way the service does for models without structured output.
func serveChat(t *testing.T, rejectSchemas bool) (*llm.Client, *[]seenRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []seenRequest
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model          string          `json:"model"`
			ResponseFormat json.RawMessage `json:"response_format"`
			Messages       []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		hasFormat := len(body.ResponseFormat) > 0 && string(body.ResponseFormat) != "null"

		mu.Lock()
		seen = append(seen, seenRequest{model: body.Model, hasFormat: hasFormat})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if hasFormat && rejectSchemas {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, schemaUnsupported)
			return
		}

		content := `{"topics":["inflammatory bowel disease","biologic therapies"]}`
		if n := len(body.Messages); n > 0 && strings.Contains(body.Messages[n-1].Content, "User Question:") {
			content = `{"summary":"IBD therapy context.","topics":["infliximab","Crohn's disease"]}`
		}
		reply, _ := json.Marshal(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  body.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 9, "completion_tokens": 1, "total_tokens": 10},
		})
		_, _ = w.Write(reply)
	}))
	t.Cleanup(ts.Close)

	cfg := types.DefaultConfig().LLM
	cfg.APIKey = "sk-test"
	cfg.BaseURL = ts.URL + "/v1"
	c, err := llm.NewClient(cfg, llm.WithHTTPClient(ts.Client()))
	require.NoError(t, err)
	return c, &seen
}

func TestExpand_DefaultConfigThroughClient(t *testing.T) {
	client, seen := serveChat(t, false)
	def := types.DefaultConfig()

	got, err := NewExpander(client, def.LLM.TopicModel, def.Topics).
		Expand(context.Background(), "What treats Crohn's disease?")
	require.NoError(t, err)
	assert.Equal(t, "IBD therapy context.", got.Summary)
	assert.Equal(t, []string{"infliximab", "Crohn's disease"}, got.Seeds)
	assert.Equal(t, []string{"infliximab", "Crohn's disease", "inflammatory bowel disease"}, got.Topics,
		"denylisted broader terms are dropped")

	require.Len(t, *seen, 2)
	for _, r := range *seen {
		assert.Equal(t, def.LLM.TopicModel, r.model)
		assert.True(t, r.hasFormat)
	}
}

func TestExpand_ModelWithoutStructuredOutput(t *testing.T) {
	client, seen := serveChat(t, true)
	def := types.DefaultConfig()

	got, err := NewExpander(client, "gpt-3.5-turbo", def.Topics).
		Expand(context.Background(), "What treats Crohn's disease?")
	require.NoError(t, err)
	assert.Equal(t, []string{"infliximab", "Crohn's disease"}, got.Seeds)
	assert.Contains(t, got.Topics, "inflammatory bowel disease")

	// One rejected step-back, its plain retry, then a plain broadening call.
	require.Len(t, *seen, 3)
	assert.True(t, (*seen)[0].hasFormat)
	assert.False(t, (*seen)[1].hasFormat)
	assert.False(t, (*seen)[2].hasFormat)
}
