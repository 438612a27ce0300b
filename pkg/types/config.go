// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// LLMConfig holds settings shared by every call to the OpenAI-compatible API.
type LLMConfig struct {
	// APIKey is the authentication key. Falls back to OPENAI_API_KEY.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the API endpoint (e.g. a local proxy). Empty uses the default.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// TopicModel is used for step-back extraction and topic broadening.
	TopicModel string `json:"topic_model" yaml:"topic_model" mapstructure:"topic_model"`

	// SummaryModel writes the role-tailored summary.
	SummaryModel string `json:"summary_model" yaml:"summary_model" mapstructure:"summary_model"`

	// JudgeModel scores the summary against the rubric.
	JudgeModel string `json:"judge_model" yaml:"judge_model" mapstructure:"judge_model"`

	// TokenModel is the model identity whose tokenizer measures the summary.
	TokenModel string `json:"token_model" yaml:"token_model" mapstructure:"token_model"`

	// EmbeddingModel embeds documents, probes and summaries.
	EmbeddingModel string `json:"embedding_model" yaml:"embedding_model" mapstructure:"embedding_model"`

	// EmbeddingBatchSize caps the number of inputs per embeddings request.
	EmbeddingBatchSize int `json:"embedding_batch_size" yaml:"embedding_batch_size" mapstructure:"embedding_batch_size"`

	// MaxRetries is the number of retry attempts for transient failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RequestsPerMinute paces outgoing calls. Zero disables pacing.
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute" mapstructure:"requests_per_minute"`

	// Timeout bounds a single HTTP request.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// CorpusConfig holds settings for corpus discovery, parsing and chunking.
type CorpusConfig struct {
	// DataDir is the root holding PubMed files and PMC directories.
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	// PubMedGlob matches PubMed XML files directly under DataDir.
	PubMedGlob string `json:"pubmed_glob" yaml:"pubmed_glob" mapstructure:"pubmed_glob"`

	// PMCDirPrefix selects PMC directories under DataDir (case-insensitive).
	PMCDirPrefix string `json:"pmc_dir_prefix" yaml:"pmc_dir_prefix" mapstructure:"pmc_dir_prefix"`

	// PMCLimit caps the number of PMC files that yield an article. Zero means no cap.
	PMCLimit int `json:"pmc_limit" yaml:"pmc_limit" mapstructure:"pmc_limit"`

	// IncludeBody extracts PMC body text, chunks it, and matches topics against it.
	IncludeBody bool `json:"include_body" yaml:"include_body" mapstructure:"include_body"`

	// ChunkSize is the body chunk window in characters (default 1000).
	ChunkSize int `json:"chunk_size" yaml:"chunk_size" mapstructure:"chunk_size"`

	// ChunkOverlap is the overlap between consecutive body chunks (default 200).
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap" mapstructure:"chunk_overlap"`

	// Workers bounds parallel file parsing.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// Cache enables the content-addressed parse cache in the store.
	Cache bool `json:"cache" yaml:"cache" mapstructure:"cache"`
}

// TopicConfig holds the topic expansion and matching policy.
type TopicConfig struct {
	// MaxTerms caps the expanded topic set (default 15).
	MaxTerms int `json:"max_terms" yaml:"max_terms" mapstructure:"max_terms"`

	// MinLength drops broadened terms shorter than this many characters (default 4).
	MinLength int `json:"min_length" yaml:"min_length" mapstructure:"min_length"`

	// Denylist holds generic terms removed from broadened topics.
	Denylist []string `json:"denylist" yaml:"denylist" mapstructure:"denylist"`

	// SubstringMatch restores plain substring matching instead of
	// word-boundary matching when filtering articles.
	SubstringMatch bool `json:"substring_match" yaml:"substring_match" mapstructure:"substring_match"`
}

// RetrievalConfig holds settings for the retrieval index.
type RetrievalConfig struct {
	// K is the number of documents retrieved per question (default 7).
	K int `json:"k" yaml:"k" mapstructure:"k"`
}

// StoreConfig holds settings for the SQLite store.
type StoreConfig struct {
	// Path is the database file.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// History persists every completed run.
	History bool `json:"history" yaml:"history" mapstructure:"history"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "console" or "json".
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all stage configurations. It is built once by the CLI and
// passed to each component.
type Config struct {
	LLM       LLMConfig       `json:"llm" yaml:"llm" mapstructure:"llm"`
	Corpus    CorpusConfig    `json:"corpus" yaml:"corpus" mapstructure:"corpus"`
	Topics    TopicConfig     `json:"topics" yaml:"topics" mapstructure:"topics"`
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval" mapstructure:"retrieval"`
	Store     StoreConfig     `json:"store" yaml:"store" mapstructure:"store"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultDenylist is the set of overly generic terms never accepted as
// broadened topics.
var DefaultDenylist = []string{"drugs", "medicine", "treatment", "therapy", "biologics", "pharmacology"}

// DefaultConfig returns the configuration used when no file or environment
// override is present.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			TopicModel:         "gpt-4o-mini",
			SummaryModel:       "gpt-4",
			JudgeModel:         "gpt-4o",
			TokenModel:         "gpt-4",
			EmbeddingModel:     "text-embedding-3-small",
			EmbeddingBatchSize: 256,
			MaxRetries:         3,
			RequestsPerMinute:  60,
			Timeout:            120 * time.Second,
		},
		Corpus: CorpusConfig{
			DataDir:      "data",
			PubMedGlob:   "pubmed*.xml",
			PMCDirPrefix: "pmc",
			PMCLimit:     500,
			IncludeBody:  true,
			ChunkSize:    1000,
			ChunkOverlap: 200,
			Workers:      4,
		},
		Topics: TopicConfig{
			MaxTerms:  15,
			MinLength: 4,
			Denylist:  append([]string(nil), DefaultDenylist...),
		},
		Retrieval: RetrievalConfig{K: 7},
		Store: StoreConfig{
			Path: ".biomed-rag/biomed-rag.db",
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}
