package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
)

// Ensure Prober implements the interface.
var _ driven.ModelProbe = (*Prober)(nil)

// DefaultProbeTimeout bounds one probe when none is given.
const DefaultProbeTimeout = 5 * time.Second

// Prober builds a short-lived client for the settings and pings it.
type Prober struct {
	timeout time.Duration
}

// NewProber creates a prober. A non-positive timeout uses DefaultProbeTimeout.
func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{timeout: timeout}
}

// ProbeLLM pings the chat model described by cfg.
func (p *Prober) ProbeLLM(ctx context.Context, cfg domain.LLMSettings) error {
	svc, err := CreateLLMService(&cfg, p.timeout)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return fmt.Errorf("%w: provider %q is not configured", domain.ErrLLMUnavailable, cfg.Provider)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s at %s: %w", domain.ErrLLMUnavailable, cfg.Model, cfg.BaseURL, err)
	}
	return nil
}

// ProbeEmbedding pings the embedding model described by cfg.
func (p *Prober) ProbeEmbedding(ctx context.Context, cfg domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(&cfg, p.timeout)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return fmt.Errorf("%w: provider %q is not configured", domain.ErrEmbeddingUnavailable, cfg.Provider)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s at %s: %w", domain.ErrEmbeddingUnavailable, cfg.Model, cfg.BaseURL, err)
	}
	return nil
}
