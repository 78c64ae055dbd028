package ai

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/parley/internal/core/domain"
)

// flakyEmbedder fails with err for the first failures calls.
type flakyEmbedder struct {
	failures int
	err      error
	calls    int
}

func (f *flakyEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return []float32{float32(len(text))}, nil
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("not used")
}

func (f *flakyEmbedder) Dimensions() int              { return 1 }
func (f *flakyEmbedder) ModelName() string            { return "flaky" }
func (f *flakyEmbedder) Ping(_ context.Context) error { return nil }
func (f *flakyEmbedder) Close() error                 { return nil }

func fastRetry(n uint64) RetryConfig {
	return RetryConfig{MaxRetries: n, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestRetryingEmbedder_RetriesTransientErrors(t *testing.T) {
	inner := &flakyEmbedder{failures: 2, err: fmt.Errorf("dial: %w", domain.ErrNetwork)}
	r := NewRetryingEmbedder(inner, fastRetry(3))

	vec, err := r.Embed(context.Background(), "abcd")
	require.NoError(t, err)
	assert.Equal(t, []float32{4}, vec)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, "flaky", r.ModelName())
}

func TestRetryingEmbedder_GivesUp(t *testing.T) {
	inner := &flakyEmbedder{failures: 10, err: fmt.Errorf("503: %w", domain.ErrEmbeddingUnavailable)}
	r := NewRetryingEmbedder(inner, fastRetry(2))

	_, err := r.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingEmbedder_PermanentErrors(t *testing.T) {
	inner := &flakyEmbedder{failures: 10, err: fmt.Errorf("size: %w", domain.ErrDimensionMismatch)}
	r := NewRetryingEmbedder(inner, fastRetry(5))

	_, err := r.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryingEmbedder_EmbedBatch(t *testing.T) {
	inner := &flakyEmbedder{failures: 1, err: domain.ErrNetwork}
	r := NewRetryingEmbedder(inner, fastRetry(1))

	vecs, err := r.EmbedBatch(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, vecs)
}
