// Package embed generates fixed-dimension vectors for commit messages.
//
// Two providers share one contract: a deterministic hash-derived fallback
// that needs no network, and a live OpenAI-backed provider. Which one runs
// is a construction-time configuration decision, never a runtime type check.
package embed

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"

	"github.com/bugrewind/bugrewind/internal/config"
)

// Provider converts a batch of texts into fixed-dimension vectors.
// Implementations must be deterministic for a given configuration: the same
// text always yields the same vector.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// New selects a provider from configuration.
func New(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "hash":
		return NewHashProvider(cfg.Dimensions), nil
	case "openai":
		return NewOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// HashProvider derives unit vectors from a sha256 digest of the text.
// Not a semantic embedding: its job is to keep the rest of the pipeline
// deterministic and testable without a live model.
type HashProvider struct {
	dims int
}

// NewHashProvider creates a hash provider with the given dimension count.
func NewHashProvider(dims int) *HashProvider {
	if dims <= 0 {
		dims = 1024
	}
	return &HashProvider{dims: dims}
}

func (p *HashProvider) Dimensions() int { return p.dims }

// Embed never fails; identical texts yield identical vectors.
func (p *HashProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = p.vector(text)
	}
	return vectors, nil
}

func (p *HashProvider) vector(text string) []float32 {
	digest := sha256.Sum256([]byte(text))

	values := make([]float64, p.dims)
	var sumSquares float64
	for i := 0; i < p.dims; i++ {
		b := digest[i%len(digest)]
		v := (float64(b)/255.0)*2 - 1
		v *= math.Sin(float64(i) * 0.01)
		values[i] = v
		sumSquares += v * v
	}

	// Unit length for cosine similarity
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		magnitude = 1
	}

	out := make([]float32, p.dims)
	for i, v := range values {
		out[i] = float32(v / magnitude)
	}
	return out
}
