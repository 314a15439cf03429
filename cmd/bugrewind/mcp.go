package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/bugrewind/bugrewind/internal/elastic"
	"github.com/bugrewind/bugrewind/internal/graph"
	"github.com/bugrewind/bugrewind/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve impact analysis tools over MCP stdio",
	Long: `Runs a Model Context Protocol server on stdin/stdout exposing three
tools: impact.search (hybrid commit search), risk.graph (co-change
neighborhood), and owner.lookup (ownership and blast radius). Logs go to
stderr so stdout stays protocol-clean.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// stdout carries JSON-RPC responses only
	logger.SetOutput(os.Stderr)

	client, err := newElasticClient()
	if err != nil {
		return err
	}

	c := newCache(ctx)
	defer c.Close()

	files := elastic.NewFilesIndexer(client, logger)
	explorer := graph.NewExplorer(files, cfg.Graph, logger)

	handler := mcp.NewHandler()
	handler.Register(mcp.NewImpactSearchTool(newSearcher(client)))
	handler.Register(mcp.NewRiskGraphTool(explorer, c, cfg.Graph))
	handler.Register(mcp.NewOwnerLookupTool(files, c, cfg.Analysis))

	logger.Info("mcp server listening on stdio")
	return mcp.NewStdioTransport(os.Stdin, os.Stdout, handler).Serve(ctx)
}
