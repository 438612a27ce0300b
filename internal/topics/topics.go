// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package topics turns a research question into the topic set used to
// filter the corpus. A step-back call produces a context summary and seed
// topics; a broadening call adds more general terms, which are cleaned
// against a denylist before being merged with the seeds.
//
// Unparseable model output is never an error here: it degrades to empty
// results. Only remote failures are returned.
package topics

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/biomed-rag/internal/llm"
	"github.com/pdiddy/biomed-rag/pkg/types"
)

// StepBackResult is the structured reply of the step-back call.
type StepBackResult struct {
	Summary string   `json:"summary" yaml:"summary"`
	Topics  []string `json:"topics" yaml:"topics"`
}

// broadenResult is the structured reply of the broadening call.
type broadenResult struct {
	Topics []string `json:"topics"`
}

// Expansion is the outcome of expanding one question.
type Expansion struct {
	Summary string   `json:"summary" yaml:"summary"`
	Seeds   []string `json:"seeds" yaml:"seeds"`
	Topics  []string `json:"topics" yaml:"topics"`
}

// Expander runs the step-back and broadening calls.
type Expander struct {
	gen   llm.Generator
	model string
	cfg   types.TopicConfig
	log   zerolog.Logger
}

// Option configures an Expander.
type Option func(*Expander)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Expander) { e.log = log }
}

// NewExpander returns an Expander calling model through gen. Zero-valued
// policy fields fall back to the defaults in types.DefaultConfig.
func NewExpander(gen llm.Generator, model string, cfg types.TopicConfig, opts ...Option) *Expander {
	def := types.DefaultConfig().Topics
	if cfg.MaxTerms <= 0 {
		cfg.MaxTerms = def.MaxTerms
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = def.MinLength
	}
	if cfg.Denylist == nil {
		cfg.Denylist = def.Denylist
	}
	e := &Expander{gen: gen, model: model, cfg: cfg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand runs StepBack then Broaden on the seed topics.
func (e *Expander) Expand(ctx context.Context, question string) (Expansion, error) {
	sb, err := e.StepBack(ctx, question)
	if err != nil {
		return Expansion{}, err
	}
	expanded, err := e.Broaden(ctx, sb.Topics)
	if err != nil {
		return Expansion{}, err
	}
	return Expansion{Summary: sb.Summary, Seeds: sb.Topics, Topics: expanded}, nil
}

// StepBack asks for the broader context of question and seed topics.
func (e *Expander) StepBack(ctx context.Context, question string) (StepBackResult, error) {
	prompt, err := renderStepBack(question)
	if err != nil {
		return StepBackResult{}, err
	}

	var out StepBackResult
	ok, err := e.generate(ctx, prompt, "step_back", &out)
	if err != nil || !ok {
		return StepBackResult{}, err
	}
	out.Summary = strings.TrimSpace(out.Summary)
	out.Topics = dedupe(out.Topics)
	return out, nil
}

// Broaden returns topics merged with cleaned broader terms, originals first,
// capped at MaxTerms. An empty topic list returns nil without a remote call.
func (e *Expander) Broaden(ctx context.Context, topics []string) ([]string, error) {
	if len(dedupe(topics)) == 0 {
		return nil, nil
	}
	prompt, err := renderBroaden(topics)
	if err != nil {
		return nil, err
	}

	var out broadenResult
	if _, err := e.generate(ctx, prompt, "broader_topics", &out); err != nil {
		return nil, err
	}
	cleaned := Clean(out.Topics, e.cfg.Denylist, e.cfg.MinLength)
	return Union(topics, cleaned, e.cfg.MaxTerms), nil
}

// generate makes one structured call, retrying once on invalid output. It
// reports false with a nil error when both attempts were unusable.
func (e *Expander) generate(ctx context.Context, prompt, name string, out any) (bool, error) {
	req := llm.Request{Model: e.model, User: prompt}
	for attempt := 0; attempt < 2; attempt++ {
		err := llm.GenerateJSON(ctx, e.gen, req, name, out)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, llm.ErrInvalidOutput) {
			return false, err
		}
		e.log.Warn().Err(err).Str("call", name).Int("attempt", attempt+1).Msg("could not parse topic response")
	}
	return false, nil
}

// Clean drops terms that equal or contain a denylisted word (ignoring case),
// or are shorter than minLen characters.
func Clean(terms, denylist []string, minLen int) []string {
	var out []string
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if len([]rune(t)) < minLen {
			continue
		}
		lower := strings.ToLower(t)
		denied := false
		for _, d := range denylist {
			d = strings.ToLower(strings.TrimSpace(d))
			if d != "" && strings.Contains(lower, d) {
				denied = true
				break
			}
		}
		if !denied {
			out = append(out, t)
		}
	}
	return out
}

// Union returns original followed by extra, without blanks or case-insensitive
// duplicates, truncated to max entries.
func Union(original, extra []string, max int) []string {
	merged := dedupe(append(append([]string(nil), original...), extra...))
	if max > 0 && len(merged) > max {
		merged = merged[:max]
	}
	return merged
}

func dedupe(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	var out []string
	for _, t := range terms {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
