package embed

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/bugrewind/bugrewind/internal/config"
	"github.com/bugrewind/bugrewind/internal/errors"
)

// OpenAIProvider generates embeddings through the OpenAI embeddings API.
// Requests are rate-limited in-process so a large repository run does not
// burn through the provider quota.
type OpenAIProvider struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	dims    int
	limiter *rate.Limiter
}

// NewOpenAIProvider creates a live provider from configuration.
func NewOpenAIProvider(cfg config.EmbeddingConfig) (*OpenAIProvider, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("openai embedding provider requires an API key")
	}

	dims := cfg.Dimensions
	if dims <= 0 {
		dims = 1024
	}
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 5
	}

	return &OpenAIProvider{
		client:  openai.NewClient(cfg.OpenAIKey),
		model:   openai.EmbeddingModel(cfg.Model),
		dims:    dims,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

func (p *OpenAIProvider) Dimensions() int { return p.dims }

// Embed sends one batch to the API. Provider failures come back as
// EmbeddingBatch errors so the caller can apply its retry/fallback policy.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      texts,
		Model:      p.model,
		Dimensions: p.dims,
	})
	if err != nil {
		return nil, errors.EmbeddingBatch(err, fmt.Sprintf("%d texts", len(texts)))
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.EmbeddingBatch(
			fmt.Errorf("provider returned %d vectors for %d texts", len(resp.Data), len(texts)),
			fmt.Sprintf("%d texts", len(texts)))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}
