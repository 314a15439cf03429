package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/bugrewind/bugrewind/internal/config"
	bugerrors "github.com/bugrewind/bugrewind/internal/errors"
)

// Client wraps the Elasticsearch client with index management helpers.
// All methods translate transport-level failures into StoreUnavailable so
// callers can distinguish "store is down" from per-document write faults.
type Client struct {
	es     *elasticsearch.Client
	cfg    config.ElasticConfig
	logger *logrus.Entry
}

// NewClient connects to Elasticsearch. Fails fast when the endpoint is
// missing; connectivity itself is only verified by Ping or Health.
func NewClient(cfg config.ElasticConfig, logger *logrus.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("elasticsearch endpoint missing")
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Endpoint},
		APIKey:    cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	return &Client{
		es:     es,
		cfg:    cfg,
		logger: logger.WithField("component", "elastic"),
	}, nil
}

// Ping tests connectivity to the cluster.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return bugerrors.StoreUnavailable(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return bugerrors.StoreUnavailable(fmt.Errorf("ping returned %s", res.Status()))
	}
	return nil
}

// EnsureIndices creates the commits and files indices when they do not
// exist. With recreate, existing indices are deleted first, dropping all
// documents.
func (c *Client) EnsureIndices(ctx context.Context, recreate bool) error {
	indices := []struct {
		name    string
		mapping string
	}{
		{c.cfg.CommitsIndex, commitIndexMapping},
		{c.cfg.FilesIndex, filesIndexMapping},
	}

	for _, idx := range indices {
		if err := c.ensureIndex(ctx, idx.name, idx.mapping, recreate); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) ensureIndex(ctx context.Context, name, mapping string, recreate bool) error {
	exists, err := c.indexExists(ctx, name)
	if err != nil {
		return err
	}

	if exists && recreate {
		c.logger.WithField("index", name).Warn("deleting existing index")
		res, err := c.es.Indices.Delete([]string{name}, c.es.Indices.Delete.WithContext(ctx))
		if err != nil {
			return bugerrors.StoreUnavailable(err)
		}
		defer res.Body.Close()
		if res.IsError() {
			return bugerrors.StoreUnavailable(fmt.Errorf("delete index %s: %s", name, res.Status()))
		}
		exists = false
	}

	if exists {
		c.logger.WithField("index", name).Debug("index already exists")
		return nil
	}

	c.logger.WithField("index", name).Info("creating index")
	res, err := c.es.Indices.Create(
		name,
		c.es.Indices.Create.WithBody(strings.NewReader(mapping)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return bugerrors.StoreUnavailable(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return bugerrors.StoreUnavailable(fmt.Errorf("create index %s: %s", name, res.Status()))
	}
	return nil
}

func (c *Client) indexExists(ctx context.Context, name string) (bool, error) {
	res, err := c.es.Indices.Exists([]string{name}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, bugerrors.StoreUnavailable(err)
	}
	defer res.Body.Close()
	switch res.StatusCode {
	case 200:
		return true, nil
	case 404:
		return false, nil
	default:
		return false, bugerrors.StoreUnavailable(fmt.Errorf("index exists check for %s: %s", name, res.Status()))
	}
}

// IndexHealth is the per-index slice of a health report.
type IndexHealth struct {
	Name     string `json:"name"`
	Exists   bool   `json:"exists"`
	DocCount int    `json:"doc_count"`
}

// Health is the readiness report for the store.
type Health struct {
	Reachable bool        `json:"reachable"`
	Commits   IndexHealth `json:"commits"`
	Files     IndexHealth `json:"files"`
	Problems  []string    `json:"problems,omitempty"`
}

// OK reports whether the store is fully ready for indexing and search.
func (h Health) OK() bool {
	return h.Reachable && h.Commits.Exists && h.Files.Exists
}

// CheckHealth probes connectivity and both indices. It never returns an
// error for an unhealthy store, only for a malformed response: callers
// inspect the report.
func (c *Client) CheckHealth(ctx context.Context) Health {
	h := Health{
		Commits: IndexHealth{Name: c.cfg.CommitsIndex},
		Files:   IndexHealth{Name: c.cfg.FilesIndex},
	}

	if err := c.Ping(ctx); err != nil {
		h.Problems = append(h.Problems, fmt.Sprintf("cluster unreachable: %v", err))
		return h
	}
	h.Reachable = true

	checks := []struct {
		health *IndexHealth
		field  string
	}{
		{&h.Commits, "message_embedding"},
		{&h.Files, "co_change_scores"},
	}
	for _, check := range checks {
		idx := check.health
		exists, err := c.indexExists(ctx, idx.Name)
		if err != nil {
			h.Problems = append(h.Problems, fmt.Sprintf("index %s: %v", idx.Name, err))
			continue
		}
		idx.Exists = exists
		if !exists {
			h.Problems = append(h.Problems, fmt.Sprintf("index %s missing (run setup)", idx.Name))
			continue
		}
		if ok, err := c.hasMappedField(ctx, idx.Name, check.field); err == nil && !ok {
			h.Problems = append(h.Problems, fmt.Sprintf("index %s lacks %s mapping (recreate with setup --recreate)", idx.Name, check.field))
		}
		if count, err := c.count(ctx, idx.Name); err == nil {
			idx.DocCount = count
		}
	}
	return h
}

// hasMappedField spot-checks that an index mapping carries one of the
// fields the engine depends on.
func (c *Client) hasMappedField(ctx context.Context, index, field string) (bool, error) {
	res, err := c.es.Indices.GetMapping(
		c.es.Indices.GetMapping.WithContext(ctx),
		c.es.Indices.GetMapping.WithIndex(index),
	)
	if err != nil {
		return false, bugerrors.StoreUnavailable(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return false, bugerrors.StoreUnavailable(fmt.Errorf("get mapping %s: %s", index, res.Status()))
	}

	var body map[string]struct {
		Mappings struct {
			Properties map[string]json.RawMessage `json:"properties"`
		} `json:"mappings"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode mapping response: %w", err)
	}
	for _, idx := range body {
		if _, ok := idx.Mappings.Properties[field]; ok {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) count(ctx context.Context, index string) (int, error) {
	res, err := c.es.Count(c.es.Count.WithContext(ctx), c.es.Count.WithIndex(index))
	if err != nil {
		return 0, bugerrors.StoreUnavailable(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, bugerrors.StoreUnavailable(fmt.Errorf("count %s: %s", index, res.Status()))
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return body.Count, nil
}

// Refresh makes recent writes to an index visible to search.
func (c *Client) Refresh(ctx context.Context, index string) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(index),
	)
	if err != nil {
		return bugerrors.StoreUnavailable(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return bugerrors.StoreUnavailable(fmt.Errorf("refresh %s: %s", index, res.Status()))
	}
	return nil
}

// Hit is one raw search hit.
type Hit struct {
	ID     string          `json:"_id"`
	Score  float64         `json:"_score"`
	Source json.RawMessage `json:"_source"`
}

// SearchIndex runs a raw query against one index and returns its hits in
// rank order. Query construction stays with the caller; transport faults
// surface as StoreUnavailable.
func (c *Client) SearchIndex(ctx context.Context, index string, body []byte) ([]Hit, error) {
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, bugerrors.StoreUnavailable(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, bugerrors.StoreUnavailable(fmt.Errorf("search returned %s", res.Status()))
	}

	var page struct {
		Hits struct {
			Hits []Hit `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return page.Hits.Hits, nil
}

// CommitsIndex is the configured commits index name.
func (c *Client) CommitsIndex() string { return c.cfg.CommitsIndex }

// FilesIndex is the configured files index name.
func (c *Client) FilesIndex() string { return c.cfg.FilesIndex }

// drain reads and closes a response body so the connection can be reused.
func drain(res *esapi.Response) {
	io.Copy(io.Discard, res.Body)
	res.Body.Close()
}
