package embed

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bugrewind/bugrewind/internal/config"
	"github.com/bugrewind/bugrewind/internal/logging"
)

// Batcher runs a provider over many texts with a bounded worker pool,
// bounded retries, and an optional deterministic fallback. Results come
// back in input order regardless of which worker finished first.
type Batcher struct {
	provider  Provider
	fallback  Provider // nil when fallback is disabled
	batchSize int
	workers   int
	retries   int
	logger    *logging.Logger
}

// BatchResult aligns vectors with the input texts. A nil vector means the
// batch failed past its retry budget and no fallback was configured.
type BatchResult struct {
	Vectors        [][]float32
	SkippedBatches int
	FellBack       int // batches served by the fallback provider
}

// NewBatcher wires a batcher from configuration.
func NewBatcher(provider Provider, cfg config.EmbeddingConfig, logger *logging.Logger) *Batcher {
	if logger == nil {
		logger, _ = logging.NewLogger(logging.DebugConfig())
	}
	b := &Batcher{
		provider:  provider,
		batchSize: cfg.BatchSize,
		workers:   cfg.Workers,
		retries:   cfg.MaxRetries,
		logger:    logger.With("component", "embed"),
	}
	if b.batchSize <= 0 {
		b.batchSize = 100
	}
	if b.workers <= 0 {
		b.workers = 4
	}
	if b.retries <= 0 {
		b.retries = 3
	}
	if cfg.FallbackToHash {
		if _, ok := provider.(*HashProvider); !ok {
			b.fallback = NewHashProvider(provider.Dimensions())
		}
	}
	return b
}

// EmbedAll embeds every text, parallelizing across batches. Embedding is a
// pure function of the text, so batches are independent; order is restored
// by writing each batch into its own slice segment.
func (b *Batcher) EmbedAll(ctx context.Context, texts []string) (*BatchResult, error) {
	result := &BatchResult{Vectors: make([][]float32, len(texts))}
	if len(texts) == 0 {
		return result, nil
	}

	type batch struct {
		start, end int
	}
	var batches []batch
	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, batch{start, end})
	}

	skipped := make([]bool, len(batches))
	fellBack := make([]bool, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, bt := range batches {
		i, bt := i, bt
		g.Go(func() error {
			vectors, usedFallback, err := b.embedBatch(gctx, texts[bt.start:bt.end], i)
			if err != nil {
				// Past the retry budget with no fallback: record and move
				// on with lexical-only capability for this batch
				skipped[i] = true
				b.logger.Warn("skipping embedding batch", "batch", i, "error", err)
				return nil
			}
			fellBack[i] = usedFallback
			copy(result.Vectors[bt.start:bt.end], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range batches {
		if skipped[i] {
			result.SkippedBatches++
		}
		if fellBack[i] {
			result.FellBack++
		}
	}
	return result, nil
}

// embedBatch retries with exponential backoff, then falls back if configured.
func (b *Batcher) embedBatch(ctx context.Context, texts []string, batchNum int) ([][]float32, bool, error) {
	var lastErr error
	backoff := 500 * time.Millisecond

	for attempt := 0; attempt < b.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, false, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		vectors, err := b.provider.Embed(ctx, texts)
		if err == nil {
			return vectors, false, nil
		}
		lastErr = err
		b.logger.Debug("embedding batch attempt failed",
			"batch", batchNum, "attempt", attempt+1, "error", err)
	}

	if b.fallback != nil {
		b.logger.Warn("falling back to hash embeddings", "batch", batchNum, "error", lastErr)
		vectors, err := b.fallback.Embed(ctx, texts)
		if err != nil {
			return nil, false, err
		}
		return vectors, true, nil
	}

	return nil, false, fmt.Errorf("batch %d failed after %d attempts: %w", batchNum, b.retries, lastErr)
}
