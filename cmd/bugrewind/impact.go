package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bugrewind/bugrewind/internal/cache"
	"github.com/bugrewind/bugrewind/internal/elastic"
	"github.com/bugrewind/bugrewind/internal/models"
)

var impactCmd = &cobra.Command{
	Use:   "impact <repo> <file>",
	Short: "Show a file's blast radius and ownership",
	Long: `Prints a file's impact set: the top contributors, files that
historically change together with it, tests that exercise it, and its
recent churn.`,
	Args: cobra.ExactArgs(2),
	RunE: runImpact,
}

func init() {
	impactCmd.Flags().Float64("min-score", -1, "co-change score threshold, 0 keeps all (default from config)")
}

func runImpact(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	repoID, filePath := args[0], args[1]

	minScore, _ := cmd.Flags().GetFloat64("min-score")
	if minScore < 0 {
		minScore = cfg.Analysis.MinCoChangeScore
	}

	client, err := newElasticClient()
	if err != nil {
		return err
	}

	c := newCache(ctx)
	defer c.Close()

	key := cache.ImpactKey(repoID, filePath, minScore)
	var impact *models.ImpactSet
	var cached models.ImpactSet
	if hit, _ := c.Get(ctx, key, &cached); hit {
		impact = &cached
	} else {
		impact, err = elastic.NewFilesIndexer(client, logger).GetImpactSet(ctx, repoID, filePath, minScore)
		if err != nil {
			return err
		}
		if impact == nil {
			return fmt.Errorf("file %q not indexed for repository %q (run 'bugrewind index' first)", filePath, repoID)
		}
		c.Set(ctx, key, impact)
	}

	if jsonOutput {
		return printJSON(impact)
	}

	fmt.Printf("Impact set for %s\n\n", impact.FilePath)
	fmt.Printf("Recent churn: %d commits in the last %d days\n", impact.RecentChurn, cfg.Analysis.ChurnWindowDays)

	if len(impact.Owners) > 0 {
		fmt.Println("\nOwners:")
		for _, o := range impact.Owners {
			fmt.Printf("  %-30s %4d commits  %6d lines  last %s\n",
				o.Author, o.CommitCount, o.LinesChanged, o.LastTouched.Format("2006-01-02"))
		}
	}

	if len(impact.RelatedFiles) > 0 {
		fmt.Println("\nChanges together with:")
		for _, r := range impact.RelatedFiles {
			fmt.Printf("  %.3f  %s\n", r.Score, r.Path)
		}
	} else {
		fmt.Printf("\nNo co-change neighbors at or above score %.2f\n", minScore)
	}

	if len(impact.TestDependencies) > 0 {
		fmt.Println("\nCovering tests:")
		for _, t := range impact.TestDependencies {
			fmt.Printf("  %s\n", t)
		}
	}
	return nil
}
