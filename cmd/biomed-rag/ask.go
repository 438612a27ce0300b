// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/biomed-rag/internal/corpus"
	"github.com/pdiddy/biomed-rag/internal/llm"
	"github.com/pdiddy/biomed-rag/internal/pipeline"
	"github.com/pdiddy/biomed-rag/internal/store"
	"github.com/pdiddy/biomed-rag/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a research question for a role",
	Long: `Ask runs the full pipeline for one question: topic expansion, corpus
loading and filtering, retrieval, role-tailored summarization, evaluation by
a judge model, and KPI computation.

The summary, the evaluation and the KPI record are printed to stdout. If the
judge reply cannot be parsed, its raw text is printed instead and the
average score is omitted.`,
	Example: `  biomed-rag ask --role rheumatologist --question "What are first-line biologics for RA?"
  biomed-rag ask --role "general practitioner" --question "..." --pmc-limit 100 --format json`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("role", "", "role of the person asking (e.g. pediatrician, oncologist, researcher)")
	askCmd.Flags().String("question", "", "free-text research question")
	askCmd.Flags().Int("k", 0, "number of documents to retrieve (default from retrieval.k)")
	askCmd.Flags().String("format", pipeline.FormatText, "output format: text, json, yaml")
	askCmd.Flags().Bool("no-eval", false, "skip the judge call; avg_llm_score is omitted")
	askCmd.Flags().Bool("save", false, "save the run to the history store")
	addCorpusFlags(askCmd.Flags())

	_ = askCmd.MarkFlagRequired("role")
	_ = askCmd.MarkFlagRequired("question")

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	role, _ := cmd.Flags().GetString("role")
	question, _ := cmd.Flags().GetString("question")
	format, _ := cmd.Flags().GetString("format")
	noEval, _ := cmd.Flags().GetBool("no-eval")

	switch format {
	case pipeline.FormatText, pipeline.FormatJSON, pipeline.FormatYAML:
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	applyCorpusFlags(cmd.Flags(), &cfg)
	if cmd.Flags().Changed("k") {
		cfg.Retrieval.K, _ = cmd.Flags().GetInt("k")
	}
	if cmd.Flags().Changed("save") {
		cfg.Store.History, _ = cmd.Flags().GetBool("save")
	}

	client, err := llm.NewClient(cfg.LLM, llm.WithLogger(logger))
	if err != nil {
		return err
	}

	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if cfg.Corpus.Cache || cfg.Store.History {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		if cfg.Corpus.Cache {
			opts = append(opts, pipeline.WithArticleCache(st.ParseCache()))
		}
		if cfg.Store.History {
			opts = append(opts, pipeline.WithStore(st))
		}
	}

	p, err := pipeline.New(cfg, client, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := p.Run(ctx, pipeline.Request{
		Role:           role,
		Question:       question,
		SkipEvaluation: noEval,
	})
	if err != nil {
		if errors.Is(err, corpus.ErrMissingCorpus) {
			fmt.Fprintf(os.Stderr, "No corpus found under %s. Add pubmed*.xml files or pmc* directories, or set --data-dir.\n",
				cfg.Corpus.DataDir)
		}
		return err
	}

	if err := pipeline.WriteReport(os.Stdout, report, format); err != nil {
		return err
	}
	if cfg.Store.History {
		fmt.Fprintf(os.Stderr, "Saved run %s\n", report.RunID)
	}
	return nil
}

// addCorpusFlags registers the flags shared by every command that loads the
// corpus.
func addCorpusFlags(fs *pflag.FlagSet) {
	fs.Int("pmc-limit", 0, "maximum number of PMC files yielding an article (0 = no cap; default from corpus.pmc_limit)")
	fs.Bool("include-body", true, "extract, chunk and match PMC body text")
	fs.Bool("substring-match", false, "match topics as plain substrings instead of whole words (whole-word matching tolerates a plural s/es on topics of 4+ letters)")
	fs.Bool("cache", false, "reuse parsed articles from the store when file contents are unchanged")
}

// applyCorpusFlags overrides cfg with the corpus flags set on the command line.
func applyCorpusFlags(fs *pflag.FlagSet, cfg *types.Config) {
	if fs.Changed("pmc-limit") {
		cfg.Corpus.PMCLimit, _ = fs.GetInt("pmc-limit")
	}
	if fs.Changed("include-body") {
		cfg.Corpus.IncludeBody, _ = fs.GetBool("include-body")
	}
	if fs.Changed("substring-match") {
		cfg.Topics.SubstringMatch, _ = fs.GetBool("substring-match")
	}
	if fs.Changed("cache") {
		cfg.Corpus.Cache, _ = fs.GetBool("cache")
	}
}
