// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus discovers PubMed and PMC sources under a data root, parses
// and filters them by topic, and returns the merged Document collection.
// PubMed documents always precede PMC documents, and files keep discovery
// order within each schema.
package corpus

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/biomed-rag/internal/articles"
	"github.com/pdiddy/biomed-rag/internal/chunk"
	"github.com/pdiddy/biomed-rag/pkg/types"
)

// ErrMissingCorpus is returned when the data root holds neither PubMed files
// nor PMC directories. Zero matches after filtering is not this error.
var ErrMissingCorpus = errors.New("no data files found")

// ArticleCache stores parsed articles by file content hash. Implementations
// must be safe for concurrent use.
type ArticleCache interface {
	Get(ctx context.Context, key CacheKey) ([]types.Article, bool, error)
	Put(ctx context.Context, key CacheKey, arts []types.Article) error
}

// CacheKey identifies one parse result. A changed file hashes differently,
// so stale entries are never returned.
type CacheKey struct {
	Schema      types.Schema
	ContentHash string
	IncludeBody bool
}

// Sources lists discovered inputs in discovery order.
type Sources struct {
	PubMedFiles []string
	PMCDirs     []string
}

// Stats counts the work done by one Load.
type Stats struct {
	PubMedFiles    int
	PubMedArticles int
	PubMedMatched  int
	PMCFiles       int
	PMCArticles    int
	PMCMatched     int
	Degraded       int
	Documents      int
}

// Result is the output of Load.
type Result struct {
	Documents []types.Document
	Stats     Stats
}

// Loader drives parsing, filtering and chunking for both schemas.
type Loader struct {
	cfg       types.CorpusConfig
	substring bool
	cache     ArticleCache
	log       zerolog.Logger
	pubmed    articles.Parser
	pmc       articles.Parser
	splitter  chunk.Splitter
}

// Option configures a Loader.
type Option func(*Loader)

// WithCache enables the parse cache.
func WithCache(c ArticleCache) Option {
	return func(l *Loader) { l.cache = c }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// WithSubstringMatch selects legacy substring topic matching.
func WithSubstringMatch(on bool) Option {
	return func(l *Loader) { l.substring = on }
}

// NewLoader returns a Loader for cfg. Zero-valued fields fall back to the
// defaults in types.DefaultConfig.
func NewLoader(cfg types.CorpusConfig, opts ...Option) *Loader {
	def := types.DefaultConfig().Corpus
	if cfg.DataDir == "" {
		cfg.DataDir = def.DataDir
	}
	if cfg.PubMedGlob == "" {
		cfg.PubMedGlob = def.PubMedGlob
	}
	if cfg.PMCDirPrefix == "" {
		cfg.PMCDirPrefix = def.PMCDirPrefix
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	l := &Loader{
		cfg:      cfg,
		log:      zerolog.Nop(),
		pubmed:   articles.PubMedParser{},
		pmc:      articles.PMCParser{},
		splitter: chunk.NewRecursiveSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Discover finds PubMed files matching the glob directly under the data root
// and subdirectories whose name starts with the PMC prefix, ignoring case.
func (l *Loader) Discover() (Sources, error) {
	var src Sources

	files, err := filepath.Glob(filepath.Join(l.cfg.DataDir, l.cfg.PubMedGlob))
	if err != nil {
		return Sources{}, fmt.Errorf("matching %s: %w", l.cfg.PubMedGlob, err)
	}
	src.PubMedFiles = files

	entries, err := os.ReadDir(l.cfg.DataDir)
	if err != nil && !os.IsNotExist(err) {
		return Sources{}, fmt.Errorf("reading data directory %s: %w", l.cfg.DataDir, err)
	}
	prefix := strings.ToLower(l.cfg.PMCDirPrefix)
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(strings.ToLower(e.Name()), prefix) {
			src.PMCDirs = append(src.PMCDirs, filepath.Join(l.cfg.DataDir, e.Name()))
		}
	}

	if len(src.PubMedFiles) == 0 && len(src.PMCDirs) == 0 {
		return Sources{}, fmt.Errorf("%w in %q: expected %s files or %s* directories",
			ErrMissingCorpus, l.cfg.DataDir, l.cfg.PubMedGlob, l.cfg.PMCDirPrefix)
	}
	return src, nil
}

// Load discovers, parses, filters and chunks the corpus for topics.
func (l *Loader) Load(ctx context.Context, topics []string) (Result, error) {
	src, err := l.Discover()
	if err != nil {
		return Result{}, err
	}

	var stats Stats

	pubmedArts, degraded, err := l.parseAll(ctx, l.pubmed, src.PubMedFiles)
	if err != nil {
		return Result{}, err
	}
	stats.PubMedFiles = len(src.PubMedFiles)
	stats.PubMedArticles = len(pubmedArts)
	stats.Degraded += degraded

	pmcFiles, err := listXML(src.PMCDirs)
	if err != nil {
		return Result{}, err
	}
	pmcArts, scanned, degraded, err := l.parseLimited(ctx, l.pmc, pmcFiles, l.cfg.PMCLimit)
	if err != nil {
		return Result{}, err
	}
	stats.PMCFiles = scanned
	stats.PMCArticles = len(pmcArts)
	stats.Degraded += degraded

	filter := articles.NewFilter(topics)
	filter.Substring = l.substring
	pubmedKept := filter.Apply(pubmedArts)

	filter.IncludeBody = l.cfg.IncludeBody
	pmcKept := filter.Apply(pmcArts)

	stats.PubMedMatched = len(pubmedKept)
	stats.PMCMatched = len(pmcKept)
	l.log.Info().Msgf("%d out of %d PubMed articles matched topic filter", len(pubmedKept), len(pubmedArts))
	l.log.Info().Msgf("%d out of %d PMC articles matched topic filter (include_body=%v)",
		len(pmcKept), len(pmcArts), l.cfg.IncludeBody)

	docs := chunk.All(pubmedKept, l.splitter)
	docs = append(docs, chunk.All(pmcKept, l.splitter)...)
	stats.Documents = len(docs)

	return Result{Documents: docs, Stats: stats}, nil
}

// fileResult is one parse outcome, kept per slot so the merge is ordered.
type fileResult struct {
	arts []types.Article
	err  error
}

// parseAll parses every file with bounded parallelism. Per-file failures are
// logged and counted, never returned.
func (l *Loader) parseAll(ctx context.Context, p articles.Parser, files []string) ([]types.Article, int, error) {
	results, err := l.parseBatch(ctx, p, files)
	if err != nil {
		return nil, 0, err
	}
	var out []types.Article
	degraded := 0
	for i, r := range results {
		if r.err != nil {
			l.logDegraded(p, files[i], r.err)
			degraded++
			continue
		}
		out = append(out, r.arts...)
	}
	return out, degraded, nil
}

// parseLimited parses files in windows of Workers files and stops once limit
// files have produced an article. A limit of zero scans everything. It
// returns the articles, the number of files consumed, and the degraded count.
func (l *Loader) parseLimited(ctx context.Context, p articles.Parser, files []string, limit int) ([]types.Article, int, int, error) {
	var out []types.Article
	produced, scanned, degraded := 0, 0, 0

	window := l.cfg.Workers
	for start := 0; start < len(files); start += window {
		end := min(start+window, len(files))
		results, err := l.parseBatch(ctx, p, files[start:end])
		if err != nil {
			return nil, 0, 0, err
		}
		for i, r := range results {
			scanned++
			if r.err != nil {
				l.logDegraded(p, files[start+i], r.err)
				degraded++
				continue
			}
			if len(r.arts) == 0 {
				continue
			}
			out = append(out, r.arts...)
			produced++
			if limit > 0 && produced >= limit {
				return out, scanned, degraded, nil
			}
		}
	}
	return out, scanned, degraded, nil
}

func (l *Loader) parseBatch(ctx context.Context, p articles.Parser, files []string) ([]fileResult, error) {
	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.Workers)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			arts, err := l.parseFile(gctx, p, path)
			results[i] = fileResult{arts: arts, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, ctx.Err()
}

// parseFile parses one file, consulting the cache when one is configured.
// Without a cache the file is streamed into the parser.
func (l *Loader) parseFile(ctx context.Context, p articles.Parser, path string) ([]types.Article, error) {
	opts := articles.Options{IncludeBody: l.cfg.IncludeBody}
	if l.cache == nil {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		return p.Parse(f, opts)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	key := CacheKey{Schema: p.Schema(), ContentHash: hex.EncodeToString(sum[:]), IncludeBody: opts.IncludeBody}
	arts, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		l.log.Warn().Err(err).Str("file", path).Msg("parse cache lookup failed")
	} else if ok {
		return arts, nil
	}

	arts, err = p.Parse(bytes.NewReader(data), opts)
	if err != nil {
		return nil, err
	}
	if err := l.cache.Put(ctx, key, arts); err != nil {
		l.log.Warn().Err(err).Str("file", path).Msg("parse cache store failed")
	}
	return arts, nil
}

func (l *Loader) logDegraded(p articles.Parser, path string, err error) {
	l.log.Debug().Err(err).Str("file", path).Str("schema", string(p.Schema())).Msg("skipping unreadable source")
}

// listXML returns the .xml files of each directory, directories in the given
// order and files sorted by name.
func listXML(dirs []string) ([]string, error) {
	var files []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".xml") {
				continue
			}
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
