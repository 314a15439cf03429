package graph

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugrewind/bugrewind/internal/config"
	"github.com/bugrewind/bugrewind/internal/models"
)

type memSource map[string]*models.FileRecord

func (m memSource) Get(_ context.Context, _, filePath string) (*models.FileRecord, error) {
	return m[filePath], nil
}

func record(path string, churn int, scores map[string]float64, owners ...string) *models.FileRecord {
	r := &models.FileRecord{
		FilePath:       path,
		RecentChurn:    churn,
		CoChangeScores: scores,
	}
	for _, o := range owners {
		r.Owners = append(r.Owners, models.Owner{Author: o})
	}
	return r
}

func newExplorer(src RecordSource, cfg config.GraphConfig) *Explorer {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewExplorer(src, cfg, logger)
}

func graphConfig() config.GraphConfig {
	return config.Default().Graph
}

func TestNeighborhoodPrunesWeakEdges(t *testing.T) {
	src := memSource{
		"a.go": record("a.go", 5, map[string]float64{"b.go": 0.6, "c.go": 0.2}, "alice@x.y"),
		"b.go": record("b.go", 2, map[string]float64{"a.go": 0.6}),
		"c.go": record("c.go", 1, map[string]float64{"a.go": 0.2}),
	}

	g, err := newExplorer(src, graphConfig()).Neighborhood(context.Background(), "r", "a.go", 1, -1)
	require.NoError(t, err)

	require.Len(t, g.Vertices, 2, "edge at 0.2 is below the 0.3 floor")
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "a.go", g.Edges[0].Source)
	assert.Equal(t, "b.go", g.Edges[0].Target)
	assert.Equal(t, 0.6, g.Edges[0].Score)
	assert.False(t, g.Truncated)
}

func TestNeighborhoodMinScoreOverridesConfigFloor(t *testing.T) {
	src := memSource{
		"a.go": record("a.go", 5, map[string]float64{"b.go": 0.6, "c.go": 0.4}),
		"b.go": record("b.go", 2, map[string]float64{"a.go": 0.6}),
		"c.go": record("c.go", 1, map[string]float64{"a.go": 0.4}),
	}

	g, err := newExplorer(src, graphConfig()).Neighborhood(context.Background(), "r", "a.go", 1, 0.5)
	require.NoError(t, err)

	require.Len(t, g.Edges, 1, "edge at 0.4 is below the requested floor")
	assert.Equal(t, "b.go", g.Edges[0].Target)
}

func TestNeighborhoodZeroMinScoreKeepsEveryEdge(t *testing.T) {
	src := memSource{
		"a.go": record("a.go", 5, map[string]float64{"b.go": 0.6, "c.go": 0.1}),
		"b.go": record("b.go", 2, map[string]float64{"a.go": 0.6}),
		"c.go": record("c.go", 1, map[string]float64{"a.go": 0.1}),
	}

	g, err := newExplorer(src, graphConfig()).Neighborhood(context.Background(), "r", "a.go", 1, 0)
	require.NoError(t, err)

	assert.Len(t, g.Edges, 2, "an explicit zero floor means unpruned")
	assert.Len(t, g.Vertices, 3)
}

func TestNeighborhoodVertexMetadata(t *testing.T) {
	src := memSource{
		"a.go": record("a.go", 7, map[string]float64{"b.go": 0.5}, "alice@x.y", "bob@x.y"),
		"b.go": record("b.go", 3, nil, "carol@x.y"),
	}

	g, err := newExplorer(src, graphConfig()).Neighborhood(context.Background(), "r", "a.go", 1, -1)
	require.NoError(t, err)
	require.Len(t, g.Vertices, 2)

	seed := g.Vertices[0]
	assert.Equal(t, "a.go", seed.FilePath)
	assert.Equal(t, 1.0, seed.Weight)
	assert.Equal(t, 7, seed.RecentChurn)
	assert.Equal(t, "alice@x.y", seed.TopOwner)
	assert.Equal(t, 0, seed.Hops)

	neighbor := g.Vertices[1]
	assert.Equal(t, "b.go", neighbor.FilePath)
	assert.Equal(t, 0.5, neighbor.Weight)
	assert.Equal(t, 3, neighbor.RecentChurn)
	assert.Equal(t, "carol@x.y", neighbor.TopOwner)
	assert.Equal(t, 1, neighbor.Hops)
}

func TestNeighborhoodTwoHops(t *testing.T) {
	src := memSource{
		"a.go": record("a.go", 0, map[string]float64{"b.go": 0.8}),
		"b.go": record("b.go", 0, map[string]float64{"a.go": 0.8, "c.go": 0.5}),
		"c.go": record("c.go", 0, map[string]float64{"b.go": 0.5}),
	}

	one, err := newExplorer(src, graphConfig()).Neighborhood(context.Background(), "r", "a.go", 1, -1)
	require.NoError(t, err)
	assert.Len(t, one.Vertices, 2, "c.go is two hops out")

	two, err := newExplorer(src, graphConfig()).Neighborhood(context.Background(), "r", "a.go", 2, -1)
	require.NoError(t, err)
	require.Len(t, two.Vertices, 3)
	require.Len(t, two.Edges, 2)
	assert.Equal(t, 2, two.Vertices[2].Hops)
}

func TestNeighborhoodNoDuplicateEdges(t *testing.T) {
	// a-b edge is reachable from both directions at 2 hops
	src := memSource{
		"a.go": record("a.go", 0, map[string]float64{"b.go": 0.8}),
		"b.go": record("b.go", 0, map[string]float64{"a.go": 0.8}),
	}

	g, err := newExplorer(src, graphConfig()).Neighborhood(context.Background(), "r", "a.go", 2, -1)
	require.NoError(t, err)
	assert.Len(t, g.Edges, 1)
}

func TestNeighborhoodVertexCapSetsTruncated(t *testing.T) {
	scores := map[string]float64{}
	src := memSource{}
	for _, p := range []string{"b.go", "c.go", "d.go", "e.go"} {
		scores[p] = 0.9
		src[p] = record(p, 0, map[string]float64{"a.go": 0.9})
	}
	src["a.go"] = record("a.go", 0, scores)

	cfg := graphConfig()
	cfg.MaxVertices = 3

	g, err := newExplorer(src, cfg).Neighborhood(context.Background(), "r", "a.go", 1, -1)
	require.NoError(t, err)
	assert.Len(t, g.Vertices, 3)
	assert.True(t, g.Truncated)

	// strongest (here equal scores, lexicographically first) neighbors kept
	assert.Equal(t, "b.go", g.Vertices[1].FilePath)
	assert.Equal(t, "c.go", g.Vertices[2].FilePath)
}

func TestNeighborhoodUnknownSeedFails(t *testing.T) {
	g, err := newExplorer(memSource{}, graphConfig()).Neighborhood(context.Background(), "r", "ghost.go", 1, -1)
	require.Error(t, err)
	assert.Nil(t, g)
}

func TestNeighborhoodSkipsUnindexedNeighbors(t *testing.T) {
	// score map references a file that was never indexed (deleted file)
	src := memSource{
		"a.go": record("a.go", 0, map[string]float64{"gone.go": 0.9, "b.go": 0.5}),
		"b.go": record("b.go", 0, nil),
	}

	g, err := newExplorer(src, graphConfig()).Neighborhood(context.Background(), "r", "a.go", 1, -1)
	require.NoError(t, err)
	require.Len(t, g.Vertices, 2)
	assert.Equal(t, "b.go", g.Vertices[1].FilePath)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "b.go", g.Edges[0].Target)
}
