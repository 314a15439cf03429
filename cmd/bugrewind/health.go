package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the store and indices",
	Long: `Probes Elasticsearch connectivity and verifies both indices exist,
reporting document counts. Exits non-zero when the store is not ready.`,
	RunE: runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, err := newElasticClient()
	if err != nil {
		return err
	}

	h := client.CheckHealth(ctx)
	if jsonOutput {
		if err := printJSON(h); err != nil {
			return err
		}
	} else {
		status := map[bool]string{true: "ok", false: "MISSING"}
		fmt.Printf("cluster reachable: %v\n", h.Reachable)
		fmt.Printf("index %-10s %-8s %d docs\n", h.Commits.Name, status[h.Commits.Exists], h.Commits.DocCount)
		fmt.Printf("index %-10s %-8s %d docs\n", h.Files.Name, status[h.Files.Exists], h.Files.DocCount)
		for _, p := range h.Problems {
			fmt.Printf("problem: %s\n", p)
		}
	}

	if !h.OK() {
		return fmt.Errorf("store not ready")
	}
	return nil
}
