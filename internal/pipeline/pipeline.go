// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline answers one question end to end: topic expansion, corpus
// loading, retrieval, summarization, evaluation and KPI computation. Stages
// run strictly in sequence and nothing is shared between runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/biomed-rag/internal/corpus"
	"github.com/pdiddy/biomed-rag/internal/evaluate"
	"github.com/pdiddy/biomed-rag/internal/index"
	"github.com/pdiddy/biomed-rag/internal/kpi"
	"github.com/pdiddy/biomed-rag/internal/llm"
	"github.com/pdiddy/biomed-rag/internal/summarize"
	"github.com/pdiddy/biomed-rag/internal/topics"
	"github.com/pdiddy/biomed-rag/pkg/types"
)

// Client is the remote model service. *llm.Client satisfies it.
type Client interface {
	llm.Generator
	llm.Embedder
	llm.TokenCounter
}

// RunStore persists completed runs.
type RunStore interface {
	SaveRun(ctx context.Context, r types.RunReport) error
}

// Request is one question to answer.
type Request struct {
	Role     string
	Question string

	// SkipEvaluation leaves out the judge call. The average score is then absent.
	SkipEvaluation bool
}

// Pipeline wires every stage from one Config.
type Pipeline struct {
	cfg        types.Config
	client     Client
	expander   *topics.Expander
	loader     *corpus.Loader
	summarizer *summarize.Summarizer
	evaluator  *evaluate.Evaluator
	store      RunStore
	log        zerolog.Logger
	now        func() time.Time
}

type options struct {
	log   zerolog.Logger
	cache corpus.ArticleCache
	store RunStore
}

// Option configures a Pipeline.
type Option func(*options)

// WithLogger sets the logger handed to every stage.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithArticleCache enables the corpus parse cache.
func WithArticleCache(c corpus.ArticleCache) Option {
	return func(o *options) { o.cache = c }
}

// WithStore persists every completed run to s.
func WithStore(s RunStore) Option {
	return func(o *options) { o.store = s }
}

// New builds a Pipeline for cfg calling client for every remote operation.
func New(cfg types.Config, client Client, opts ...Option) (*Pipeline, error) {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.Retrieval.K <= 0 {
		cfg.Retrieval.K = types.DefaultConfig().Retrieval.K
	}

	loaderOpts := []corpus.Option{
		corpus.WithLogger(o.log),
		corpus.WithSubstringMatch(cfg.Topics.SubstringMatch),
	}
	if o.cache != nil {
		loaderOpts = append(loaderOpts, corpus.WithCache(o.cache))
	}

	evaluator, err := evaluate.New(client, cfg.LLM.JudgeModel, evaluate.WithLogger(o.log))
	if err != nil {
		return nil, fmt.Errorf("building evaluator: %w", err)
	}

	return &Pipeline{
		cfg:        cfg,
		client:     client,
		expander:   topics.NewExpander(client, cfg.LLM.TopicModel, cfg.Topics, topics.WithLogger(o.log)),
		loader:     corpus.NewLoader(cfg.Corpus, loaderOpts...),
		summarizer: summarize.New(client, cfg.LLM.SummaryModel),
		evaluator:  evaluator,
		store:      o.store,
		log:        o.log,
		now:        time.Now,
	}, nil
}

// Run answers req. A missing corpus is reported before any remote call.
func (p *Pipeline) Run(ctx context.Context, req Request) (types.RunReport, error) {
	if strings.TrimSpace(req.Question) == "" {
		return types.RunReport{}, errors.New("question is required")
	}
	if _, err := p.loader.Discover(); err != nil {
		return types.RunReport{}, err
	}

	report := types.RunReport{
		RunID:     uuid.NewString(),
		CreatedAt: p.now().UTC(),
		Role:      req.Role,
		Question:  req.Question,
	}

	start := time.Now()
	exp, err := p.expander.Expand(ctx, req.Question)
	if err != nil {
		return types.RunReport{}, fmt.Errorf("expanding topics: %w", err)
	}
	p.stageDone("expand", start)
	report.StepBackSummary = exp.Summary
	report.Topics = exp.Topics
	p.log.Info().Strs("topics", exp.Topics).Msg("expanded topics")

	start = time.Now()
	loaded, err := p.loader.Load(ctx, exp.Topics)
	if err != nil {
		return types.RunReport{}, fmt.Errorf("loading corpus: %w", err)
	}
	p.stageDone("load", start)

	start = time.Now()
	ix, err := index.Build(ctx, p.client, loaded.Documents)
	if err != nil {
		return types.RunReport{}, fmt.Errorf("building index: %w", err)
	}
	report.Probe = Probe(req.Question, exp.Summary)
	hits, err := ix.Search(ctx, report.Probe, p.cfg.Retrieval.K)
	if err != nil {
		return types.RunReport{}, fmt.Errorf("searching index: %w", err)
	}
	docs := index.Documents(hits)
	p.stageDone("retrieve", start)
	for _, d := range docs {
		report.Sources = append(report.Sources, d.Metadata)
	}

	start = time.Now()
	report.Summary, err = p.summarizer.Summarize(ctx, req.Role, req.Question, docs)
	if err != nil {
		return types.RunReport{}, err
	}
	p.stageDone("summarize", start)

	if !req.SkipEvaluation {
		start = time.Now()
		res, err := p.evaluator.Evaluate(ctx, req.Role, req.Question, report.Summary)
		if err != nil {
			return types.RunReport{}, err
		}
		p.stageDone("evaluate", start)
		report.Evaluation = res.Report
		report.EvaluationRaw = res.Raw
		if res.Degraded() {
			p.log.Warn().Msg("evaluation degraded to raw text, avg_llm_score omitted")
		}
	}

	start = time.Now()
	report.KPIs, err = kpi.Compute(ctx, p.client, p.client, kpi.Input{
		Probe:     report.Probe,
		Summary:   report.Summary,
		Report:    report.Evaluation,
		Documents: docs,
	})
	if err != nil {
		return types.RunReport{}, fmt.Errorf("computing KPIs: %w", err)
	}
	p.stageDone("kpi", start)

	if p.store != nil {
		if err := p.store.SaveRun(ctx, report); err != nil {
			return types.RunReport{}, fmt.Errorf("saving run %s: %w", report.RunID, err)
		}
	}
	return report, nil
}

// Probe is the retrieval query: the question enriched with its step-back
// context.
func Probe(question, stepBack string) string {
	return strings.TrimSpace(fmt.Sprintf("Question: %s\nGeneral Context: %s", question, stepBack))
}

func (p *Pipeline) stageDone(stage string, start time.Time) {
	p.log.Debug().Str("stage", stage).Dur("elapsed", time.Since(start)).Msg("stage done")
}
