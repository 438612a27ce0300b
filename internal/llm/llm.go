// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps the OpenAI-compatible chat, embedding and token
// accounting endpoints behind the narrow interfaces the pipeline stages use.
// Every remote failure is reported as ErrRemoteService.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

var (
	// ErrRemoteService marks a failed call to the model or embedding service,
	// including an open circuit breaker.
	ErrRemoteService = errors.New("remote service failure")

	// ErrInvalidOutput marks a reply that does not satisfy the requested schema.
	ErrInvalidOutput = errors.New("model output does not match schema")
)

// Schema requests strict structured output for one call.
type Schema struct {
	Name       string
	Definition json.Marshaler
}

// Request is one chat completion call: a system instruction and one user turn.
type Request struct {
	Model  string
	System string
	User   string

	// Temperature zero selects the most deterministic decoding the service allows.
	Temperature float32

	// MaxTokens caps the reply length. Zero leaves it to the service.
	MaxTokens int

	// Schema, when set, asks for a JSON reply conforming to it.
	Schema *Schema
}

// Generator produces one text completion.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Embedder maps texts to vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// TokenCounter measures text under the configured tokenizer.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}

var fenceRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// StripFences returns the contents of the first Markdown code fence in s, or
// s trimmed when there is none.
func StripFences(s string) string {
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

// SchemaFor builds a strict schema named name from the Go type of v. Pointers
// are followed to the underlying type.
func SchemaFor(name string, v any) (*Schema, error) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return nil, fmt.Errorf("generating schema for %s: nil type", name)
	}
	def, err := jsonschema.GenerateSchemaForType(reflect.Zero(t).Interface())
	if err != nil {
		return nil, fmt.Errorf("generating schema for %s: %w", name, err)
	}
	return &Schema{Name: name, Definition: def}, nil
}

// GenerateJSON asks g for a reply matching the schema of out's type and
// decodes it into out. A reply that is not valid JSON or violates the
// schema yields ErrInvalidOutput; remote failures pass through unchanged.
func GenerateJSON(ctx context.Context, g Generator, req Request, name string, out any) error {
	schema, err := SchemaFor(name, out)
	if err != nil {
		return err
	}
	req.Schema = schema

	reply, err := g.Generate(ctx, req)
	if err != nil {
		return err
	}
	return DecodeJSON(schema, reply, out)
}

// DecodeJSON strips code fences from reply, checks it against schema and
// decodes it into out. Failures yield ErrInvalidOutput.
func DecodeJSON(schema *Schema, reply string, out any) error {
	def, ok := schema.Definition.(*jsonschema.Definition)
	if !ok {
		return fmt.Errorf("schema %s was not built by SchemaFor", schema.Name)
	}
	if err := jsonschema.VerifySchemaAndUnmarshal(*def, []byte(StripFences(reply)), out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	return nil
}
