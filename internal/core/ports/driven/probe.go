package driven

import (
	"context"

	"github.com/custodia-labs/parley/internal/core/domain"
)

// ModelProbe checks that a configured model server answers before the
// settings are relied on.
type ModelProbe interface {
	// ProbeLLM reaches the chat model. Failures wrap domain.ErrLLMUnavailable.
	ProbeLLM(ctx context.Context, cfg domain.LLMSettings) error

	// ProbeEmbedding reaches the embedding model. Failures wrap
	// domain.ErrEmbeddingUnavailable.
	ProbeEmbedding(ctx context.Context, cfg domain.EmbeddingSettings) error
}
