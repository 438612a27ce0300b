// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/biomed-rag/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect saved runs and manage the store",
	Long: `History reads the runs saved by "ask --save" (or store.history: true)
from the SQLite store. Use subcommands to list, export, or prune the parse
cache.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, newest first",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	st, opts, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), opts)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-16s  %-20s  %-5s  %s\n", "Run", "Created", "Role", "Score", "Question")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 120))
	for _, r := range runs {
		score := "-"
		if r.KPIs.AvgLLMScore != nil {
			score = fmt.Sprintf("%.2f", *r.KPIs.AvgLLMScore)
		}
		fmt.Fprintf(os.Stdout, "%-36s  %-16s  %-20s  %-5s  %s\n",
			r.RunID, r.CreatedAt.Local().Format("2006-01-02 15:04"), truncate(r.Role, 20), score, truncate(r.Question, 40))
	}
	fmt.Fprintf(os.Stdout, "\n%d runs\n", len(runs))
	return nil
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved runs to YAML or JSON",
	RunE:  runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	st, opts, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	w := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "yaml":
		err = st.ExportYAML(context.Background(), w, opts)
	case "json":
		err = st.ExportJSON(context.Background(), w, opts)
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
	if err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(os.Stderr, "Exported runs to %s\n", output)
	}
	return nil
}

// --- prune-cache subcommand ---

var historyPruneCmd = &cobra.Command{
	Use:   "prune-cache",
	Short: "Delete parse cache entries older than a given age",
	RunE:  runHistoryPrune,
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	age, _ := cmd.Flags().GetDuration("older-than")

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.ParseCache().Prune(context.Background(), age)
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %d cache entries\n", n)
	return nil
}

func openHistory(cmd *cobra.Command) (*store.Store, store.ListOptions, error) {
	role, _ := cmd.Flags().GetString("role")
	query, _ := cmd.Flags().GetString("query")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, store.ListOptions{}, err
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, store.ListOptions{}, err
	}
	return st, store.ListOptions{Role: role, Query: query, Limit: limit}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	for _, c := range []*cobra.Command{historyListCmd, historyExportCmd} {
		c.Flags().String("role", "", "filter by role")
		c.Flags().String("query", "", "filter by text contained in the question")
	}
	historyListCmd.Flags().Int("limit", 20, "maximum number of runs (0 = all)")
	historyExportCmd.Flags().Int("limit", 0, "maximum number of runs (0 = all)")

	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().String("output", "", "write to this file instead of stdout")

	historyPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "remove entries created before this age")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}
