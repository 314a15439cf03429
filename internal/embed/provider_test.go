package embed

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"testing"

	"github.com/bugrewind/bugrewind/internal/config"
)

func TestHashProviderDeterministic(t *testing.T) {
	p := NewHashProvider(1024)

	vectors, err := p.Embed(context.Background(), []string{"fix auth bug", "fix auth bug"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}

	for i := range vectors[0] {
		if vectors[0][i] != vectors[1][i] {
			t.Fatalf("identical texts produced different vectors at index %d", i)
		}
	}
}

func TestHashProviderDimensionsAndNorm(t *testing.T) {
	p := NewHashProvider(1024)

	vectors, err := p.Embed(context.Background(), []string{"refactor login flow"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors[0]) != 1024 {
		t.Fatalf("expected 1024 dims, got %d", len(vectors[0]))
	}

	var sumSquares float64
	for _, v := range vectors[0] {
		sumSquares += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSquares)
	if norm < 0.99 || norm > 1.01 {
		t.Errorf("expected unit-length vector, got norm %f", norm)
	}
}

func TestHashProviderDistinctTexts(t *testing.T) {
	p := NewHashProvider(256)

	vectors, err := p.Embed(context.Background(), []string{"add metrics", "remove metrics"})
	if err != nil {
		t.Fatal(err)
	}

	same := true
	for i := range vectors[0] {
		if vectors[0][i] != vectors[1][i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical vectors")
	}
}

// flakyProvider fails a fixed number of calls before succeeding.
type flakyProvider struct {
	failures int32
	dims     int
}

func (f *flakyProvider) Dimensions() int { return f.dims }

func (f *flakyProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if atomic.AddInt32(&f.failures, -1) >= 0 {
		return nil, fmt.Errorf("provider down")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
		out[i][0] = 1
	}
	return out, nil
}

func TestBatcherPreservesOrder(t *testing.T) {
	cfg := config.EmbeddingConfig{BatchSize: 2, Workers: 3, MaxRetries: 1}
	p := NewHashProvider(64)
	b := NewBatcher(p, cfg, nil)

	texts := []string{"one", "two", "three", "four", "five"}
	result, err := b.EmbedAll(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if result.SkippedBatches != 0 {
		t.Errorf("expected no skipped batches, got %d", result.SkippedBatches)
	}

	// Each position must match a direct single embed of the same text
	for i, text := range texts {
		direct, _ := p.Embed(context.Background(), []string{text})
		for j := range direct[0] {
			if result.Vectors[i][j] != direct[0][j] {
				t.Fatalf("vector at position %d does not match text %q", i, text)
			}
		}
	}
}

func TestBatcherRetriesThenSucceeds(t *testing.T) {
	cfg := config.EmbeddingConfig{BatchSize: 10, Workers: 1, MaxRetries: 3}
	p := &flakyProvider{failures: 2, dims: 8}
	b := NewBatcher(p, cfg, nil)

	result, err := b.EmbedAll(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if result.SkippedBatches != 0 {
		t.Errorf("expected retry to recover, got %d skipped", result.SkippedBatches)
	}
	if result.Vectors[0] == nil {
		t.Error("expected vectors after retry")
	}
}

func TestBatcherFallsBackToHash(t *testing.T) {
	cfg := config.EmbeddingConfig{BatchSize: 10, Workers: 1, MaxRetries: 2, FallbackToHash: true}
	p := &flakyProvider{failures: 100, dims: 16}
	b := NewBatcher(p, cfg, nil)

	result, err := b.EmbedAll(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if result.FellBack != 1 {
		t.Errorf("expected 1 fallback batch, got %d", result.FellBack)
	}
	if result.Vectors[0] == nil || len(result.Vectors[0]) != 16 {
		t.Error("expected fallback hash vectors")
	}
}

func TestBatcherSkipsWithoutFallback(t *testing.T) {
	cfg := config.EmbeddingConfig{BatchSize: 10, Workers: 1, MaxRetries: 2, FallbackToHash: false}
	p := &flakyProvider{failures: 100, dims: 16}
	b := NewBatcher(p, cfg, nil)

	result, err := b.EmbedAll(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if result.SkippedBatches != 1 {
		t.Errorf("expected 1 skipped batch, got %d", result.SkippedBatches)
	}
	if result.Vectors[0] != nil {
		t.Error("expected nil vectors for skipped batch")
	}
}

func TestNewSelectsProvider(t *testing.T) {
	p, err := New(config.EmbeddingConfig{Provider: "hash", Dimensions: 128})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*HashProvider); !ok {
		t.Errorf("expected HashProvider, got %T", p)
	}

	if _, err := New(config.EmbeddingConfig{Provider: "bogus"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
