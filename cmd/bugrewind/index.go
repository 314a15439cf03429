package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bugrewind/bugrewind/internal/elastic"
	"github.com/bugrewind/bugrewind/internal/embed"
	"github.com/bugrewind/bugrewind/internal/gitx"
	"github.com/bugrewind/bugrewind/internal/logging"
	"github.com/bugrewind/bugrewind/internal/pipeline"
)

var indexCmd = &cobra.Command{
	Use:   "index <repository>",
	Short: "Extract and index a repository's commit history",
	Long: `Walks the repository's history (a local path or a clone URL), embeds
commit messages, derives per-file analytics (ownership, co-change scores,
churn, test relationships), and writes both indices. Re-running on the
same repository upserts commits by SHA and fully replaces the file
analytics.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().Int("max-commits", 0, "limit history depth (0 = full history)")
	indexCmd.Flags().Bool("no-embeddings", false, "skip message embeddings (lexical-only search)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	location := args[0]
	maxCommits, _ := cmd.Flags().GetInt("max-commits")
	noEmbeddings, _ := cmd.Flags().GetBool("no-embeddings")

	client, err := newElasticClient()
	if err != nil {
		return err
	}

	repo, err := gitx.Open(ctx, location, cfg.CloneDir)
	if err != nil {
		return err
	}
	logger.WithField("repo", repo.Name).Info("repository opened")

	var embedder pipeline.Embedder
	if !noEmbeddings {
		if provider := newEmbedder(); provider != nil {
			embedder = embed.NewBatcher(provider, cfg.Embedding, logging.With("component", "embed"))
		}
	}

	c := newCache(ctx)
	defer c.Close()

	orchestrator := pipeline.NewOrchestrator(
		gitx.NewExtractor(repo, logging.With("component", "git")),
		embedder,
		elastic.NewCommitIndexer(client, logger),
		elastic.NewFilesIndexer(client, logger),
		c,
		cfg,
		logger,
	)

	result, err := orchestrator.Run(ctx, pipeline.Options{
		RepoID:     repo.Name,
		MaxCommits: maxCommits,
	})
	if result != nil && jsonOutput {
		printJSON(result)
	}
	if err != nil {
		return err
	}

	if !jsonOutput {
		fmt.Printf("Indexed %d commits and %d files for %s in %s\n",
			result.CommitsIndexed, result.FilesIndexed, result.RepoID,
			result.Duration.Round(time.Millisecond))
		if result.Skipped > 0 {
			fmt.Printf("Skipped %d commits (diff failures)\n", result.Skipped)
		}
		for _, e := range result.Errors {
			fmt.Printf("  warning: %s\n", e)
		}
	}
	return nil
}
