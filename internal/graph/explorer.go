package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/bugrewind/bugrewind/internal/config"
	"github.com/bugrewind/bugrewind/internal/models"
)

// RecordSource hydrates file documents for traversal. Satisfied by the
// files indexer; tests inject an in-memory map.
type RecordSource interface {
	Get(ctx context.Context, repoID, filePath string) (*models.FileRecord, error)
}

// Explorer materializes query-time co-change neighborhoods. Graphs are
// never stored: each query walks the precomputed co-change scores outward
// from a seed file and assembles an ephemeral structure.
type Explorer struct {
	source RecordSource
	cfg    config.GraphConfig
	logger *logrus.Entry
}

func NewExplorer(source RecordSource, cfg config.GraphConfig, logger *logrus.Logger) *Explorer {
	return &Explorer{
		source: source,
		cfg:    cfg,
		logger: logger.WithField("component", "graph"),
	}
}

type queueItem struct {
	path string
	hops int
}

// Neighborhood walks the co-change network out from seed. Edges below
// minScore are pruned, expansion stops at maxHops, and the vertex cap
// truncates breadth-first so the closest files survive. Config defaults
// apply when maxHops <= 0 or minScore is negative; an explicit zero
// minScore keeps every edge. The seed itself must be indexed.
func (e *Explorer) Neighborhood(ctx context.Context, repoID, seed string, maxHops int, minScore float64) (*models.Graph, error) {
	if maxHops <= 0 {
		maxHops = e.cfg.MaxHops
	}
	if minScore < 0 {
		minScore = e.cfg.MinScore
	}

	seedRecord, err := e.source.Get(ctx, repoID, seed)
	if err != nil {
		return nil, err
	}
	if seedRecord == nil {
		return nil, fmt.Errorf("file %q not indexed for repository %q", seed, repoID)
	}

	g := &models.Graph{Seed: seed}
	index := map[string]int{} // path -> position in g.Vertices
	seen := map[edgeKey]bool{}

	e.addVertex(g, index, seedRecord, 1.0, 0)

	queue := []queueItem{{path: seed, hops: 0}}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if item.hops >= maxHops {
			continue
		}

		record := seedRecord
		if item.path != seed {
			record, err = e.source.Get(ctx, repoID, item.path)
			if err != nil {
				return nil, err
			}
			if record == nil {
				continue
			}
		}

		for _, n := range e.neighbors(record, minScore) {
			key := makeEdgeKey(item.path, n.Path)
			if seen[key] {
				continue
			}

			idx, known := index[n.Path]
			if !known {
				if len(g.Vertices) >= e.cfg.MaxVertices {
					g.Truncated = true
					continue
				}
				nr, err := e.source.Get(ctx, repoID, n.Path)
				if err != nil {
					return nil, err
				}
				idx = e.addVertex(g, index, nr, n.Score, item.hops+1)
				if idx < 0 {
					// neighbor referenced by scores but not indexed
					continue
				}
				queue = append(queue, queueItem{path: n.Path, hops: item.hops + 1})
			} else if g.Vertices[idx].Weight < n.Score {
				g.Vertices[idx].Weight = n.Score
			}

			seen[key] = true
			g.Edges = append(g.Edges, models.GraphEdge{
				Source: item.path,
				Target: n.Path,
				Score:  n.Score,
			})
		}
	}

	e.logger.WithFields(logrus.Fields{
		"seed":      seed,
		"vertices":  len(g.Vertices),
		"edges":     len(g.Edges),
		"truncated": g.Truncated,
	}).Debug("neighborhood assembled")
	return g, nil
}

type scoredNeighbor struct {
	Path  string
	Score float64
}

// neighbors filters and orders a record's co-change scores: strongest
// first, ties by path, so truncation under the vertex cap is stable.
func (e *Explorer) neighbors(record *models.FileRecord, minScore float64) []scoredNeighbor {
	out := make([]scoredNeighbor, 0, len(record.CoChangeScores))
	for path, score := range record.CoChangeScores {
		if score >= minScore {
			out = append(out, scoredNeighbor{Path: path, Score: score})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// addVertex appends a vertex with its risk metadata. Returns -1 when the
// record is unknown to the index.
func (e *Explorer) addVertex(g *models.Graph, index map[string]int, record *models.FileRecord, weight float64, hops int) int {
	if record == nil {
		return -1
	}

	v := models.GraphVertex{
		FilePath:    record.FilePath,
		Weight:      weight,
		RecentChurn: record.RecentChurn,
		Hops:        hops,
	}
	if len(record.Owners) > 0 {
		v.TopOwner = record.Owners[0].Author
	}

	index[record.FilePath] = len(g.Vertices)
	g.Vertices = append(g.Vertices, v)
	return index[record.FilePath]
}

type edgeKey struct {
	a, b string
}

func makeEdgeKey(a, b string) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a: a, b: b}
}
