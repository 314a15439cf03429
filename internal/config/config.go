package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	// Elasticsearch (the persisted document/vector store)
	Elastic ElasticConfig `yaml:"elastic"`

	// Embedding provider
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Analysis knobs
	Analysis AnalysisConfig `yaml:"analysis"`

	// Search knobs
	Search SearchConfig `yaml:"search"`

	// Graph query knobs
	Graph GraphConfig `yaml:"graph"`

	// Redis query cache (optional)
	Cache CacheConfig `yaml:"cache"`

	// Where remote repositories get cloned
	CloneDir string `yaml:"clone_dir"`
}

type ElasticConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	APIKey       string        `yaml:"api_key"`
	Timeout      time.Duration `yaml:"timeout"`
	CommitsIndex string        `yaml:"commits_index"`
	FilesIndex   string        `yaml:"files_index"`
}

type EmbeddingConfig struct {
	// Provider selects the implementation: "hash" (deterministic, offline)
	// or "openai" (live API).
	Provider   string `yaml:"provider"`
	OpenAIKey  string `yaml:"openai_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	// Workers bounds the embedding worker pool per repository run.
	Workers int `yaml:"workers"`
	// MaxRetries bounds per-batch retries before falling back.
	MaxRetries int `yaml:"max_retries"`
	// FallbackToHash switches failed batches to the hash provider instead
	// of skipping embeddings entirely.
	FallbackToHash bool `yaml:"fallback_to_hash"`
	// RateLimit caps provider requests per second.
	RateLimit int `yaml:"rate_limit"`
}

type AnalysisConfig struct {
	// MinCoChangeScore is the Jaccard floor below which a related file is
	// dropped from a FileRecord's co-change map.
	MinCoChangeScore float64 `yaml:"min_co_change_score"`
	// MaxFilesPerCommit excludes oversized commits (large merges, vendored
	// imports) from pair accumulation to bound the O(k^2) cost.
	MaxFilesPerCommit int `yaml:"max_files_per_commit"`
	// ChurnWindowDays anchors to the newest commit in the batch, not
	// wall-clock now, so rebuilds from historical data are reproducible.
	ChurnWindowDays int `yaml:"churn_window_days"`
	// TopOwners is how many ranked contributors each FileRecord keeps.
	TopOwners int `yaml:"top_owners"`
	// TestPathPatterns mark a path as a test file when any substring matches.
	TestPathPatterns []string `yaml:"test_path_patterns"`
}

type SearchConfig struct {
	// RRFConstant is the k in 1/(k+rank).
	RRFConstant int `yaml:"rrf_constant"`
	// RankWindow is how many results each ranking contributes to fusion.
	RankWindow int `yaml:"rank_window"`
	// KNNCandidates is the num_candidates for approximate kNN.
	KNNCandidates int `yaml:"knn_candidates"`
}

type GraphConfig struct {
	MaxHops     int     `yaml:"max_hops"`
	MinScore    float64 `yaml:"min_score"`
	MaxVertices int     `yaml:"max_vertices"`
}

type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	TTL           time.Duration `yaml:"ttl"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Elastic: ElasticConfig{
			Timeout:      30 * time.Second,
			CommitsIndex: "commits",
			FilesIndex:   "files",
		},
		Embedding: EmbeddingConfig{
			Provider:       "hash",
			Model:          "text-embedding-3-small",
			Dimensions:     1024,
			BatchSize:      100,
			Workers:        4,
			MaxRetries:     3,
			FallbackToHash: true,
			RateLimit:      5,
		},
		Analysis: AnalysisConfig{
			MinCoChangeScore:  0.3,
			MaxFilesPerCommit: 50,
			ChurnWindowDays:   30,
			TopOwners:         3,
			TestPathPatterns: []string{
				"/test/", "/tests/", "/__tests__/",
				".test.", ".spec.", "_test.", "_spec.",
				"test_", "spec_",
			},
		},
		Search: SearchConfig{
			RRFConstant:   60,
			RankWindow:    100,
			KNNCandidates: 200,
		},
		Graph: GraphConfig{
			MaxHops:     1,
			MinScore:    0.3,
			MaxVertices: 50,
		},
		Cache: CacheConfig{
			TTL: 15 * time.Minute,
		},
		CloneDir: filepath.Join(os.TempDir(), "bugrewind-clones"),
	}
}

// Load loads configuration from file, environment, and defaults
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("elastic", cfg.Elastic)
	v.SetDefault("embedding", cfg.Embedding)
	v.SetDefault("analysis", cfg.Analysis)
	v.SetDefault("search", cfg.Search)
	v.SetDefault("graph", cfg.Graph)
	v.SetDefault("cache", cfg.Cache)
	v.SetDefault("clone_dir", cfg.CloneDir)

	v.SetEnvPrefix("BUGREWIND")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".bugrewind")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".bugrewind"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Validate reports missing settings required to reach the store.
func (c *Config) Validate() []string {
	var missing []string
	if c.Elastic.Endpoint == "" {
		missing = append(missing, "ELASTIC_ENDPOINT")
	}
	if c.Elastic.APIKey == "" {
		missing = append(missing, "ELASTIC_API_KEY")
	}
	if c.Embedding.Provider == "openai" && c.Embedding.OpenAIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	return missing
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local",
		".env",
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".bugrewind", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies well-known environment variables that don't fit
// the BUGREWIND_ prefix convention
func applyEnvOverrides(cfg *Config) {
	if endpoint := os.Getenv("ELASTIC_ENDPOINT"); endpoint != "" {
		cfg.Elastic.Endpoint = endpoint
	}
	if apiKey := os.Getenv("ELASTIC_API_KEY"); apiKey != "" {
		cfg.Elastic.APIKey = apiKey
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Embedding.OpenAIKey = key
	}
	if dir := os.Getenv("CLONE_DIR"); dir != "" {
		cfg.CloneDir = dir
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Cache.RedisAddr = addr
	}
	if provider := os.Getenv("EMBEDDING_PROVIDER"); provider != "" {
		cfg.Embedding.Provider = provider
	}
	if dims := os.Getenv("EMBEDDING_DIMENSIONS"); dims != "" {
		if n, err := strconv.Atoi(dims); err == nil && n > 0 {
			cfg.Embedding.Dimensions = n
		}
	}
}
