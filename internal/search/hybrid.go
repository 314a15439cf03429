package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bugrewind/bugrewind/internal/config"
	"github.com/bugrewind/bugrewind/internal/elastic"
	"github.com/bugrewind/bugrewind/internal/embed"
	"github.com/bugrewind/bugrewind/internal/models"
)

// Searcher runs hybrid search over the commits index: a BM25 leg and a
// kNN leg executed independently, then fused by reciprocal rank. Either
// leg can drop out (no embedder, or the query vector cannot be produced)
// and the other still returns ranked results.
type Searcher struct {
	client   *elastic.Client
	embedder embed.Provider
	cfg      config.SearchConfig
	logger   *logrus.Entry
}

func NewSearcher(client *elastic.Client, embedder embed.Provider, cfg config.SearchConfig, logger *logrus.Logger) *Searcher {
	return &Searcher{
		client:   client,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger.WithField("component", "search"),
	}
}

// Query is one hybrid search request. Text drives the lexical leg and,
// when no Vector is supplied, is embedded to drive the kNN leg. A caller
// that already holds a vector can pass it and omit Text for pure
// nearest-neighbor ranking.
type Query struct {
	Text        string
	Vector      []float32
	RepoName    string // optional filter
	Size        int
	SinceMonths int // optional recency filter
}

// commitSource is the slice of a commit document needed to shape a hit.
type commitSource struct {
	SHA          string    `json:"sha"`
	Message      string    `json:"message"`
	AuthorName   string    `json:"author_name"`
	CommitDate   time.Time `json:"commit_date"`
	FilesChanged []struct {
		Path string `json:"path"`
	} `json:"files_changed"`
}

// Search runs both legs and fuses their rankings. The reported score is
// the fused reciprocal-rank score, not either leg's native score.
func (s *Searcher) Search(ctx context.Context, q Query) ([]models.SearchHit, error) {
	if q.Size <= 0 {
		q.Size = 20
	}

	docs := make(map[string]commitSource)

	lexical, err := s.lexicalLeg(ctx, q, docs)
	if err != nil {
		return nil, err
	}

	vector, err := s.vectorLeg(ctx, q, docs)
	if err != nil {
		return nil, err
	}

	var fused []Fused
	switch {
	case vector == nil:
		fused = fuse(s.cfg.RRFConstant, lexical)
	case lexical == nil:
		fused = fuse(s.cfg.RRFConstant, vector)
	default:
		fused = fuse(s.cfg.RRFConstant, lexical, vector)
	}

	if len(fused) > q.Size {
		fused = fused[:q.Size]
	}
	return s.shapeHits(fused, docs), nil
}

// lexicalLeg is the BM25 ranking: boosted multi-field keyword match.
func (s *Searcher) lexicalLeg(ctx context.Context, q Query, docs map[string]commitSource) ([]string, error) {
	if q.Text == "" {
		return nil, nil
	}

	body := map[string]any{
		"size": s.cfg.RankWindow,
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query": q.Text,
						"fields": []string{
							"message^3",
							"author_name^2",
							"files_changed.path",
						},
						"type": "best_fields",
					},
				},
				"filter": s.filters(q),
			},
		},
		"_source": map[string]any{"excludes": []string{"message_embedding"}},
	}
	return s.runLeg(ctx, body, docs)
}

// vectorLeg is the kNN ranking over message embeddings. Returns a nil
// ranking, not an error, when no query vector can be produced: search
// degrades to lexical-only.
func (s *Searcher) vectorLeg(ctx context.Context, q Query, docs map[string]commitSource) ([]string, error) {
	vector := q.Vector
	if vector == nil {
		if s.embedder == nil || q.Text == "" {
			return nil, nil
		}
		vectors, err := s.embedder.Embed(ctx, []string{q.Text})
		if err != nil || len(vectors) == 0 {
			s.logger.WithError(err).Warn("query embedding failed, lexical-only search")
			return nil, nil
		}
		vector = vectors[0]
	}

	knn := map[string]any{
		"field":          "message_embedding",
		"query_vector":   vector,
		"k":              s.cfg.RankWindow,
		"num_candidates": s.cfg.KNNCandidates,
	}
	if f := s.filters(q); len(f) > 0 {
		knn["filter"] = map[string]any{"bool": map[string]any{"must": f}}
	}

	body := map[string]any{
		"size":    s.cfg.RankWindow,
		"knn":     knn,
		"_source": map[string]any{"excludes": []string{"message_embedding"}},
	}
	return s.runLeg(ctx, body, docs)
}

func (s *Searcher) filters(q Query) []any {
	var filters []any
	if q.RepoName != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"repo_name": q.RepoName}})
	}
	if q.SinceMonths > 0 {
		filters = append(filters, map[string]any{
			"range": map[string]any{
				"commit_date": map[string]any{"gte": fmt.Sprintf("now-%dM", q.SinceMonths)},
			},
		})
	}
	return filters
}

// runLeg executes one query and returns its SHA ranking, caching decoded
// sources so fusion can shape hits without refetching.
func (s *Searcher) runLeg(ctx context.Context, body map[string]any, docs map[string]commitSource) ([]string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search query: %w", err)
	}

	hits, err := s.client.SearchIndex(ctx, s.client.CommitsIndex(), raw)
	if err != nil {
		return nil, err
	}

	ranking := make([]string, 0, len(hits))
	for _, h := range hits {
		var src commitSource
		if err := json.Unmarshal(h.Source, &src); err != nil {
			s.logger.WithField("id", h.ID).WithError(err).Warn("undecodable commit document")
			continue
		}
		if src.SHA == "" {
			src.SHA = h.ID
		}
		ranking = append(ranking, src.SHA)
		docs[src.SHA] = src
	}
	return ranking, nil
}

func (s *Searcher) shapeHits(fused []Fused, docs map[string]commitSource) []models.SearchHit {
	hits := make([]models.SearchHit, 0, len(fused))
	for _, f := range fused {
		src, ok := docs[f.ID]
		if !ok {
			continue
		}
		paths := make([]string, 0, len(src.FilesChanged))
		for _, fc := range src.FilesChanged {
			paths = append(paths, fc.Path)
		}
		hits = append(hits, models.SearchHit{
			SHA:          src.SHA,
			Message:      src.Message,
			AuthorName:   src.AuthorName,
			CommitDate:   src.CommitDate,
			FilesChanged: paths,
			Score:        f.Score,
		})
	}
	return hits
}

// SearchByFile lists commits that touched an exact path, newest first.
func (s *Searcher) SearchByFile(ctx context.Context, filePath, repoName string, size int) ([]models.SearchHit, error) {
	if size <= 0 {
		size = 50
	}

	filters := []any{
		map[string]any{
			"nested": map[string]any{
				"path": "files_changed",
				"query": map[string]any{
					"term": map[string]any{"files_changed.path.keyword": filePath},
				},
			},
		},
	}
	if repoName != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"repo_name": repoName}})
	}

	body := map[string]any{
		"size":    size,
		"query":   map[string]any{"bool": map[string]any{"filter": filters}},
		"sort":    []any{map[string]any{"commit_date": "desc"}},
		"_source": map[string]any{"excludes": []string{"message_embedding"}},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal file query: %w", err)
	}

	hits, err := s.client.SearchIndex(ctx, s.client.CommitsIndex(), raw)
	if err != nil {
		return nil, err
	}

	out := make([]models.SearchHit, 0, len(hits))
	for _, h := range hits {
		var src commitSource
		if err := json.Unmarshal(h.Source, &src); err != nil {
			continue
		}
		paths := make([]string, 0, len(src.FilesChanged))
		for _, fc := range src.FilesChanged {
			paths = append(paths, fc.Path)
		}
		out = append(out, models.SearchHit{
			SHA:          src.SHA,
			Message:      src.Message,
			AuthorName:   src.AuthorName,
			CommitDate:   src.CommitDate,
			FilesChanged: paths,
			Score:        h.Score,
		})
	}
	return out, nil
}
