package ai

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
)

// Ensure RetryingEmbedder implements the interface.
var _ driven.EmbeddingService = (*RetryingEmbedder)(nil)

// RetryConfig controls the embedding retry policy.
type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns the policy used for ingestion and retrieval.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// RetryingEmbedder retries transient embedding failures with exponential
// backoff. Dimension mismatches and malformed responses are not retried.
type RetryingEmbedder struct {
	driven.EmbeddingService
	cfg RetryConfig
}

// NewRetryingEmbedder wraps inner with the given retry policy.
func NewRetryingEmbedder(inner driven.EmbeddingService, cfg RetryConfig) *RetryingEmbedder {
	return &RetryingEmbedder{EmbeddingService: inner, cfg: cfg}
}

// Embed generates an embedding, retrying transient failures.
func (r *RetryingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return backoff.RetryWithData(func() ([]float32, error) {
		vec, err := r.EmbeddingService.Embed(ctx, text)
		return vec, classify(err)
	}, r.policy(ctx))
}

// EmbedBatch embeds each text in order, retrying each one independently.
func (r *RetryingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := r.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (r *RetryingEmbedder) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	if r.cfg.MaxInterval > 0 {
		b.MaxInterval = r.cfg.MaxInterval
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, r.cfg.MaxRetries), ctx)
}

// classify marks errors that another attempt cannot fix as permanent.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNetwork) || errors.Is(err, domain.ErrEmbeddingUnavailable) {
		return err
	}
	return backoff.Permanent(err)
}
