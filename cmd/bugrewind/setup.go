package main

import (
	"context"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the commits and files indices",
	Long: `Creates both indices with their mappings: the commits index with
full-text and dense-vector fields for hybrid search, and the files index
for per-file analytics. Safe to re-run; existing indices are left alone
unless --recreate is given.`,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().Bool("recreate", false, "delete and recreate existing indices (drops all documents)")
}

func runSetup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	recreate, _ := cmd.Flags().GetBool("recreate")

	client, err := newElasticClient()
	if err != nil {
		return err
	}

	if err := client.EnsureIndices(ctx, recreate); err != nil {
		return err
	}

	logger.Info("indices ready")
	return nil
}
