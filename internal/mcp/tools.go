package mcp

import (
	"context"
	"fmt"
	"sort"

	"github.com/bugrewind/bugrewind/internal/cache"
	"github.com/bugrewind/bugrewind/internal/config"
	"github.com/bugrewind/bugrewind/internal/graph"
	"github.com/bugrewind/bugrewind/internal/models"
	"github.com/bugrewind/bugrewind/internal/search"
)

// ImpactSource resolves impact sets for owner lookups.
type ImpactSource interface {
	GetImpactSet(ctx context.Context, repoID, filePath string, minScore float64) (*models.ImpactSet, error)
}

// ImpactSearchTool is the impact.search tool: hybrid commit search with
// the files most often touched by the matching commits.
type ImpactSearchTool struct {
	searcher *search.Searcher
}

func NewImpactSearchTool(searcher *search.Searcher) *ImpactSearchTool {
	return &ImpactSearchTool{searcher: searcher}
}

func (t *ImpactSearchTool) Name() string { return "impact.search" }

func (t *ImpactSearchTool) Description() string {
	return "Search commit history with hybrid keyword and semantic ranking. " +
		"Returns matching commits with fused scores and the files they most often touch."
}

func (t *ImpactSearchTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Natural language or keyword query over commit messages, authors, and paths",
			},
			"repo_id": map[string]any{
				"type":        "string",
				"description": "Repository identifier (e.g. 'owner/repo'). Optional.",
			},
			"size": map[string]any{
				"type":        "number",
				"description": "Number of commits to return (default 10)",
			},
		},
		"required": []string{"query"},
	}
}

func (t *ImpactSearchTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	query := stringArg(args, "query")
	if query == "" {
		return nil, fmt.Errorf("'query' is required")
	}

	size := intArg(args, "size", 10)
	hits, err := t.searcher.Search(ctx, search.Query{
		Text:     query,
		RepoName: stringArg(args, "repo_id"),
		Size:     size,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"query":          query,
		"total_results":  len(hits),
		"results":        hits,
		"impacted_files": topFiles(hits, 5),
	}, nil
}

// topFiles ranks the file paths appearing across the hit set.
func topFiles(hits []models.SearchHit, n int) []string {
	counts := make(map[string]int)
	for _, h := range hits {
		for _, p := range h.FilesChanged {
			counts[p]++
		}
	}

	paths := make([]string, 0, len(counts))
	for p := range counts {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		if counts[paths[i]] != counts[paths[j]] {
			return counts[paths[i]] > counts[paths[j]]
		}
		return paths[i] < paths[j]
	})

	if len(paths) > n {
		paths = paths[:n]
	}
	return paths
}

// RiskGraphTool is the risk.graph tool: co-change neighborhood around a
// file, with churn and ownership on each vertex.
type RiskGraphTool struct {
	explorer *graph.Explorer
	cache    *cache.Cache
	cfg      config.GraphConfig
}

func NewRiskGraphTool(explorer *graph.Explorer, c *cache.Cache, cfg config.GraphConfig) *RiskGraphTool {
	return &RiskGraphTool{explorer: explorer, cache: c, cfg: cfg}
}

func (t *RiskGraphTool) Name() string { return "risk.graph" }

func (t *RiskGraphTool) Description() string {
	return "Explore the co-change network around a file to see what its changes ripple into. " +
		"Returns a graph of files (with churn and top owner) and weighted co-change edges."
}

func (t *RiskGraphTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "File to explore from",
			},
			"repo_id": map[string]any{
				"type":        "string",
				"description": "Repository identifier (e.g. 'owner/repo')",
			},
			"max_hops": map[string]any{
				"type":        "number",
				"description": "Traversal depth (default 1)",
			},
			"min_score": map[string]any{
				"type":        "number",
				"description": "Co-change score floor for edges (default 0.3)",
			},
		},
		"required": []string{"file_path", "repo_id"},
	}
}

func (t *RiskGraphTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	filePath := stringArg(args, "file_path")
	repoID := stringArg(args, "repo_id")
	if filePath == "" || repoID == "" {
		return nil, fmt.Errorf("'file_path' and 'repo_id' are required")
	}

	hops := intArg(args, "max_hops", t.cfg.MaxHops)
	minScore := floatArg(args, "min_score", t.cfg.MinScore)
	key := cache.GraphKey(repoID, filePath, hops, minScore)

	var g models.Graph
	if hit, err := t.cache.Get(ctx, key, &g); err == nil && hit {
		return &g, nil
	}

	result, err := t.explorer.Neighborhood(ctx, repoID, filePath, hops, minScore)
	if err != nil {
		return nil, err
	}
	t.cache.Set(ctx, key, result)
	return result, nil
}

// OwnerLookupTool is the owner.lookup tool: ownership and impact set for
// one file.
type OwnerLookupTool struct {
	source ImpactSource
	cache  *cache.Cache
	cfg    config.AnalysisConfig
}

func NewOwnerLookupTool(source ImpactSource, c *cache.Cache, cfg config.AnalysisConfig) *OwnerLookupTool {
	return &OwnerLookupTool{source: source, cache: c, cfg: cfg}
}

func (t *OwnerLookupTool) Name() string { return "owner.lookup" }

func (t *OwnerLookupTool) Description() string {
	return "Look up who owns a file and what breaks with it: top contributors, " +
		"files that historically change together, covering tests, and recent churn."
}

func (t *OwnerLookupTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "File to look up",
			},
			"repo_id": map[string]any{
				"type":        "string",
				"description": "Repository identifier (e.g. 'owner/repo')",
			},
		},
		"required": []string{"file_path", "repo_id"},
	}
}

func (t *OwnerLookupTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	filePath := stringArg(args, "file_path")
	repoID := stringArg(args, "repo_id")
	if filePath == "" || repoID == "" {
		return nil, fmt.Errorf("'file_path' and 'repo_id' are required")
	}

	key := cache.ImpactKey(repoID, filePath, t.cfg.MinCoChangeScore)
	var cached models.ImpactSet
	if hit, err := t.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	impact, err := t.source.GetImpactSet(ctx, repoID, filePath, t.cfg.MinCoChangeScore)
	if err != nil {
		return nil, err
	}
	if impact == nil {
		return nil, fmt.Errorf("file %q not indexed for repository %q", filePath, repoID)
	}
	t.cache.Set(ctx, key, impact)
	return impact, nil
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]any, key string, def int) int {
	// JSON numbers decode as float64
	if f, ok := args[key].(float64); ok && f > 0 {
		return int(f)
	}
	return def
}

// floatArg treats an explicit zero as a value, not as "unset".
func floatArg(args map[string]any, key string, def float64) float64 {
	if f, ok := args[key].(float64); ok && f >= 0 {
		return f
	}
	return def
}
