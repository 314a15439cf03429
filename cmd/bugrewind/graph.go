package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bugrewind/bugrewind/internal/cache"
	"github.com/bugrewind/bugrewind/internal/elastic"
	"github.com/bugrewind/bugrewind/internal/graph"
	"github.com/bugrewind/bugrewind/internal/models"
)

var graphCmd = &cobra.Command{
	Use:   "graph <repo> <file>",
	Short: "Explore the co-change network around a file",
	Long: `Walks the precomputed co-change scores outward from a file and prints
the resulting neighborhood: vertices with churn and top owner, and
weighted edges between files that change together.`,
	Args: cobra.ExactArgs(2),
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().Int("hops", 0, "traversal depth (default from config)")
	graphCmd.Flags().Float64("min-score", -1, "co-change score floor for edges, 0 keeps all (default from config)")
}

func runGraph(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	repoID, filePath := args[0], args[1]
	hops, _ := cmd.Flags().GetInt("hops")
	minScore, _ := cmd.Flags().GetFloat64("min-score")

	client, err := newElasticClient()
	if err != nil {
		return err
	}

	c := newCache(ctx)
	defer c.Close()

	if hops <= 0 {
		hops = cfg.Graph.MaxHops
	}
	if minScore < 0 {
		minScore = cfg.Graph.MinScore
	}
	key := cache.GraphKey(repoID, filePath, hops, minScore)

	var g *models.Graph
	var cached models.Graph
	if hit, _ := c.Get(ctx, key, &cached); hit {
		g = &cached
	} else {
		explorer := graph.NewExplorer(elastic.NewFilesIndexer(client, logger), cfg.Graph, logger)
		g, err = explorer.Neighborhood(ctx, repoID, filePath, hops, minScore)
		if err != nil {
			return err
		}
		c.Set(ctx, key, g)
	}

	if jsonOutput {
		return printJSON(g)
	}

	fmt.Printf("Co-change neighborhood of %s (%d hops)\n\n", g.Seed, hops)
	fmt.Println("Files:")
	for _, v := range g.Vertices {
		owner := v.TopOwner
		if owner == "" {
			owner = "-"
		}
		fmt.Printf("  [%d] %-40s weight %.3f  churn %-3d  owner %s\n",
			v.Hops, v.FilePath, v.Weight, v.RecentChurn, owner)
	}

	if len(g.Edges) > 0 {
		fmt.Println("\nEdges:")
		for _, e := range g.Edges {
			fmt.Printf("  %.3f  %s <-> %s\n", e.Score, e.Source, e.Target)
		}
	}
	if g.Truncated {
		fmt.Printf("\n(truncated at %d files; raise the vertex cap to see more)\n", cfg.Graph.MaxVertices)
	}
	return nil
}
