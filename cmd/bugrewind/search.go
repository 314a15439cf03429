package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bugrewind/bugrewind/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Hybrid search over indexed commits",
	Long: `Runs keyword (BM25) and semantic (kNN) rankings over commit messages,
authors, and changed paths, fused by reciprocal rank. Without an embedding
provider the search degrades to keyword-only.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("repo", "", "filter by repository (owner/repo)")
	searchCmd.Flags().Int("size", 10, "number of results")
	searchCmd.Flags().Int("months", 0, "only commits from the last N months")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	repo, _ := cmd.Flags().GetString("repo")
	size, _ := cmd.Flags().GetInt("size")
	months, _ := cmd.Flags().GetInt("months")

	client, err := newElasticClient()
	if err != nil {
		return err
	}

	hits, err := newSearcher(client).Search(ctx, search.Query{
		Text:        strings.Join(args, " "),
		RepoName:    repo,
		Size:        size,
		SinceMonths: months,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(hits)
	}

	if len(hits) == 0 {
		fmt.Println("No matching commits.")
		return nil
	}
	for i, h := range hits {
		fmt.Printf("%2d. %.8s  %-10s  %s\n", i+1, h.SHA, h.CommitDate.Format("2006-01-02"), firstLine(h.Message))
		fmt.Printf("    score %.4f  author %s  files %s\n", h.Score, h.AuthorName, summarizePaths(h.FilesChanged))
	}
	return nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func summarizePaths(paths []string) string {
	if len(paths) <= 3 {
		return strings.Join(paths, ", ")
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(paths[:3], ", "), len(paths)-3)
}
