package config

import (
	"os"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Analysis.MinCoChangeScore != 0.3 {
		t.Errorf("expected co-change floor 0.3, got %f", cfg.Analysis.MinCoChangeScore)
	}
	if cfg.Analysis.MaxFilesPerCommit != 50 {
		t.Errorf("expected max files per commit 50, got %d", cfg.Analysis.MaxFilesPerCommit)
	}
	if cfg.Analysis.ChurnWindowDays != 30 {
		t.Errorf("expected 30-day churn window, got %d", cfg.Analysis.ChurnWindowDays)
	}
	if cfg.Search.RRFConstant != 60 {
		t.Errorf("expected RRF constant 60, got %d", cfg.Search.RRFConstant)
	}
	if cfg.Graph.MaxHops != 1 {
		t.Errorf("expected default max hops 1, got %d", cfg.Graph.MaxHops)
	}
	if cfg.Embedding.Dimensions != 1024 {
		t.Errorf("expected 1024-dim embeddings, got %d", cfg.Embedding.Dimensions)
	}
}

func TestValidateReportsMissing(t *testing.T) {
	cfg := Default()
	missing := cfg.Validate()

	if len(missing) != 2 {
		t.Fatalf("expected 2 missing keys, got %v", missing)
	}
	if missing[0] != "ELASTIC_ENDPOINT" || missing[1] != "ELASTIC_API_KEY" {
		t.Errorf("unexpected missing keys: %v", missing)
	}

	cfg.Elastic.Endpoint = "https://example.es.io"
	cfg.Elastic.APIKey = "key"
	if got := cfg.Validate(); len(got) != 0 {
		t.Errorf("expected no missing keys, got %v", got)
	}
}

func TestValidateRequiresOpenAIKeyForLiveProvider(t *testing.T) {
	cfg := Default()
	cfg.Elastic.Endpoint = "https://example.es.io"
	cfg.Elastic.APIKey = "key"
	cfg.Embedding.Provider = "openai"

	missing := cfg.Validate()
	if len(missing) != 1 || missing[0] != "OPENAI_API_KEY" {
		t.Errorf("expected OPENAI_API_KEY to be reported, got %v", missing)
	}
}

func TestEnvOverrides(t *testing.T) {
	os.Setenv("ELASTIC_ENDPOINT", "https://env.es.io")
	os.Setenv("EMBEDDING_PROVIDER", "openai")
	defer os.Unsetenv("ELASTIC_ENDPOINT")
	defer os.Unsetenv("EMBEDDING_PROVIDER")

	cfg := Default()
	applyEnvOverrides(cfg)

	if cfg.Elastic.Endpoint != "https://env.es.io" {
		t.Errorf("endpoint override not applied: %s", cfg.Elastic.Endpoint)
	}
	if cfg.Embedding.Provider != "openai" {
		t.Errorf("provider override not applied: %s", cfg.Embedding.Provider)
	}
}
