// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the biomed-rag CLI. It answers
// biomedical questions from a local PubMed and PMC corpus: topics are
// expanded with a language model, matching articles are retrieved by
// embedding similarity, and a role-tailored summary is written, judged and
// measured.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/biomed-rag/internal/logging"
	"github.com/pdiddy/biomed-rag/internal/secrets"
	"github.com/pdiddy/biomed-rag/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger writes to stderr once PersistentPreRunE has run.
var logger = zerolog.Nop()

// rootCmd is the base command for the biomed-rag CLI.
var rootCmd = &cobra.Command{
	Use:   "biomed-rag",
	Short: "Answer biomedical questions from a local PubMed and PMC corpus",
	Long: `biomed-rag answers a research question for a given clinical or research
role. It expands the question into search topics, filters a local corpus of
PubMed and PMC XML files by those topics, retrieves the closest passages by
embedding similarity, and writes a cited summary tailored to the role. The
summary is then scored by a judge model and measured (citations, tokens,
similarity to the question).

Place pubmed*.xml files and pmc* directories of PMC XML files under the
data directory (corpus.data_dir, default ./data).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := secrets.LoadDotEnv(".env"); err != nil {
			return err
		}

		logger = logging.New(os.Stderr, viper.GetString("log.level"), viper.GetString("log.format"))

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./biomed-rag.yaml or ~/.config/biomed-rag/biomed-rag.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "corpus root holding pubmed*.xml files and pmc* directories")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")

	_ = viper.BindPFlag("corpus.data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	setDefaults(viper.GetViper(), types.DefaultConfig())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("biomed-rag")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "biomed-rag"))
		}
	}

	viper.SetEnvPrefix("BIOMED_RAG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every configuration key so that environment
// variables can override keys absent from the config file.
func setDefaults(v *viper.Viper, def types.Config) {
	v.SetDefault("llm.api_key", def.LLM.APIKey)
	v.SetDefault("llm.base_url", def.LLM.BaseURL)
	v.SetDefault("llm.topic_model", def.LLM.TopicModel)
	v.SetDefault("llm.summary_model", def.LLM.SummaryModel)
	v.SetDefault("llm.judge_model", def.LLM.JudgeModel)
	v.SetDefault("llm.token_model", def.LLM.TokenModel)
	v.SetDefault("llm.embedding_model", def.LLM.EmbeddingModel)
	v.SetDefault("llm.embedding_batch_size", def.LLM.EmbeddingBatchSize)
	v.SetDefault("llm.max_retries", def.LLM.MaxRetries)
	v.SetDefault("llm.requests_per_minute", def.LLM.RequestsPerMinute)
	v.SetDefault("llm.timeout", def.LLM.Timeout)

	v.SetDefault("corpus.data_dir", def.Corpus.DataDir)
	v.SetDefault("corpus.pubmed_glob", def.Corpus.PubMedGlob)
	v.SetDefault("corpus.pmc_dir_prefix", def.Corpus.PMCDirPrefix)
	v.SetDefault("corpus.pmc_limit", def.Corpus.PMCLimit)
	v.SetDefault("corpus.include_body", def.Corpus.IncludeBody)
	v.SetDefault("corpus.chunk_size", def.Corpus.ChunkSize)
	v.SetDefault("corpus.chunk_overlap", def.Corpus.ChunkOverlap)
	v.SetDefault("corpus.workers", def.Corpus.Workers)
	v.SetDefault("corpus.cache", def.Corpus.Cache)

	v.SetDefault("topics.max_terms", def.Topics.MaxTerms)
	v.SetDefault("topics.min_length", def.Topics.MinLength)
	v.SetDefault("topics.denylist", def.Topics.Denylist)
	v.SetDefault("topics.substring_match", def.Topics.SubstringMatch)

	v.SetDefault("retrieval.k", def.Retrieval.K)

	v.SetDefault("store.path", def.Store.Path)
	v.SetDefault("store.history", def.Store.History)

	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
}

// loadConfig builds the run configuration from defaults, the config file and
// the environment, then resolves the API key.
func loadConfig(v *viper.Viper) (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("reading configuration: %w", err)
	}
	cfg.LLM.APIKey = secrets.Resolve(loadedSecrets, cfg.LLM.APIKey, secrets.OpenAIKey, secrets.OpenAIEnv)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
