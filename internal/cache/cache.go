package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/bugrewind/bugrewind/internal/config"
)

// Cache fronts query results with Redis. Impact sets and neighborhood
// graphs are rebuilt from the files index on every query; the cache keeps
// repeat lookups for the same file cheap between index rebuilds.
//
// A nil *Cache is valid and caches nothing, so callers never branch on
// whether Redis is configured.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Entry
}

// New connects to Redis. Fails fast on unreachable Redis rather than
// degrading silently; callers that can run without a cache pass the nil
// Cache instead.
func New(ctx context.Context, cfg config.CacheConfig, logger *logrus.Logger) (*Cache, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("redis address missing")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	log := logger.WithField("component", "cache")
	log.WithField("addr", cfg.RedisAddr).Info("redis connected")

	return &Cache{client: client, ttl: ttl, logger: log}, nil
}

// ImpactKey names a cached impact set.
func ImpactKey(repoID, filePath string, minScore float64) string {
	return fmt.Sprintf("impact:%s:%s:%.2f", repoID, filePath, minScore)
}

// GraphKey names a cached neighborhood graph.
func GraphKey(repoID, seed string, hops int, minScore float64) string {
	return fmt.Sprintf("graph:%s:%s:%d:%.2f", repoID, seed, hops, minScore)
}

// Get unmarshals a cached value into target. A miss is (false, nil).
func (c *Cache) Get(ctx context.Context, key string, target any) (bool, error) {
	if c == nil {
		return false, nil
	}

	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		c.logger.WithField("key", key).Debug("cache miss")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(val), target); err != nil {
		// poisoned entry, drop it
		c.client.Del(ctx, key)
		return false, nil
	}
	c.logger.WithField("key", key).Debug("cache hit")
	return true, nil
}

// Set stores a value under the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// InvalidateRepo drops every cached result for a repository. Called after
// a rebuild so queries see fresh analytics immediately.
func (c *Cache) InvalidateRepo(ctx context.Context, repoID string) error {
	if c == nil {
		return nil
	}

	var deleted int
	for _, pattern := range []string{
		fmt.Sprintf("impact:%s:*", repoID),
		fmt.Sprintf("graph:%s:*", repoID),
	} {
		iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			if err := c.client.Del(ctx, iter.Val()).Err(); err == nil {
				deleted++
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("cache scan %s: %w", pattern, err)
		}
	}

	c.logger.WithFields(logrus.Fields{"repo_id": repoID, "deleted": deleted}).Debug("cache invalidated")
	return nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
