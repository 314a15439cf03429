package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/bugrewind/bugrewind/internal/cache"
	"github.com/bugrewind/bugrewind/internal/elastic"
	"github.com/bugrewind/bugrewind/internal/embed"
	"github.com/bugrewind/bugrewind/internal/search"
)

// newElasticClient builds the store client, failing with a configuration
// hint when required settings are absent.
func newElasticClient() (*elastic.Client, error) {
	if missing := cfg.Validate(); len(missing) > 0 {
		return nil, fmt.Errorf("missing configuration: %s (set in .env or environment)", strings.Join(missing, ", "))
	}
	return elastic.NewClient(cfg.Elastic, logger)
}

// newEmbedder builds the configured embedding provider. Never fatal: on a
// broken provider config the caller runs lexical-only.
func newEmbedder() embed.Provider {
	provider, err := embed.New(cfg.Embedding)
	if err != nil {
		logger.WithError(err).Warn("embedding provider unavailable, continuing lexical-only")
		return nil
	}
	return provider
}

// newSearcher wires hybrid search against the commits index.
func newSearcher(client *elastic.Client) *search.Searcher {
	return search.NewSearcher(client, newEmbedder(), cfg.Search, logger)
}

// newCache connects Redis when configured; queries run uncached otherwise.
func newCache(ctx context.Context) *cache.Cache {
	if cfg.Cache.RedisAddr == "" {
		return nil
	}
	c, err := cache.New(ctx, cfg.Cache, logger)
	if err != nil {
		logger.WithError(err).Warn("cache unavailable, queries run uncached")
		return nil
	}
	return c
}
