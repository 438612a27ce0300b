// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/biomed-rag/internal/llm"
	"github.com/pdiddy/biomed-rag/internal/topics"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Expand a question into search topics without loading the corpus",
	Long: `Topics runs only the topic expansion stage: a step-back call that
summarizes the question's broader context and proposes seed topics, then a
broadening call whose terms are cleaned against the denylist and merged with
the seeds.`,
	RunE: runTopics,
}

func init() {
	topicsCmd.Flags().String("question", "", "free-text research question")
	topicsCmd.Flags().Bool("json", false, "output the expansion as JSON")
	_ = topicsCmd.MarkFlagRequired("question")

	rootCmd.AddCommand(topicsCmd)
}

func runTopics(cmd *cobra.Command, args []string) error {
	question, _ := cmd.Flags().GetString("question")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	client, err := llm.NewClient(cfg.LLM, llm.WithLogger(logger))
	if err != nil {
		return err
	}

	exp, err := topics.NewExpander(client, cfg.LLM.TopicModel, cfg.Topics, topics.WithLogger(logger)).
		Expand(context.Background(), question)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(exp)
	}

	fmt.Printf("Step-back summary: %s\n", exp.Summary)
	fmt.Printf("Seed topics:       %s\n", strings.Join(exp.Seeds, ", "))
	fmt.Printf("Expanded topics:   %s\n", strings.Join(exp.Topics, ", "))
	return nil
}
