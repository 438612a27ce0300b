// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/biomed-rag/pkg/types"
)

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, types.DefaultConfig())
	v.SetEnvPrefix("BIOMED_RAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := loadConfig(newViper())
	require.NoError(t, err)

	want := types.DefaultConfig()
	assert.Equal(t, want, cfg)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("BIOMED_RAG_RETRIEVAL_K", "3")
	t.Setenv("BIOMED_RAG_LLM_TIMEOUT", "45s")

	path := filepath.Join(t.TempDir(), "biomed-rag.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
corpus:
  data_dir: /srv/corpus
  pmc_limit: 50
topics:
  denylist: [drugs]
  substring_match: true
`), 0o644))

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "/srv/corpus", cfg.Corpus.DataDir)
	assert.Equal(t, 50, cfg.Corpus.PMCLimit)
	assert.Equal(t, "pubmed*.xml", cfg.Corpus.PubMedGlob, "unset keys keep defaults")
	assert.Equal(t, []string{"drugs"}, cfg.Topics.Denylist)
	assert.True(t, cfg.Topics.SubstringMatch)
	assert.Equal(t, 3, cfg.Retrieval.K)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey, "OPENAI_API_KEY is the fallback key")
}

func TestLoadConfig_ConfiguredKeyWins(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("BIOMED_RAG_LLM_API_KEY", "sk-configured")

	cfg, err := loadConfig(newViper())
	require.NoError(t, err)
	assert.Equal(t, "sk-configured", cfg.LLM.APIKey)
}

func TestApplyCorpusFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addCorpusFlags(fs)
	require.NoError(t, fs.Parse([]string{"--pmc-limit", "10", "--include-body=false", "--substring-match"}))

	cfg := types.DefaultConfig()
	applyCorpusFlags(fs, &cfg)
	assert.Equal(t, 10, cfg.Corpus.PMCLimit)
	assert.False(t, cfg.Corpus.IncludeBody)
	assert.True(t, cfg.Topics.SubstringMatch)
	assert.False(t, cfg.Corpus.Cache, "unset flags leave the config alone")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
