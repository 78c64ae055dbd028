// Package websearch wraps search engines with outbound rate limiting and a
// circuit breaker. Engines live in the duckduckgo and bing subpackages.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
	"github.com/custodia-labs/parley/internal/logger"
)

// Ensure Guarded implements the interface.
var _ driven.SearchEngine = (*Guarded)(nil)

// GuardConfig controls the rate limit and breaker around one engine.
type GuardConfig struct {
	// RequestsPerSecond limits queries. Zero or less means unlimited.
	RequestsPerSecond float64

	// ConsecutiveFailures trips the breaker (default: 3).
	ConsecutiveFailures uint32

	// OpenTimeout is how long the breaker stays open (default: 30s).
	OpenTimeout time.Duration
}

// DefaultGuardConfig returns one query per second and a breaker that opens
// after three consecutive failures.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		RequestsPerSecond:   1,
		ConsecutiveFailures: 3,
		OpenTimeout:         30 * time.Second,
	}
}

// Guarded is a SearchEngine decorated with a limiter and a breaker.
type Guarded struct {
	engine  driven.SearchEngine
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewGuarded wraps engine.
func NewGuarded(engine driven.SearchEngine, cfg GuardConfig) *Guarded {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 3
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	threshold := cfg.ConsecutiveFailures
	settings := gobreaker.Settings{
		Name:        engine.Name(),
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("search engine %s: circuit %s -> %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			// Cancelled queries do not count against the engine.
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &Guarded{
		engine:  engine,
		limiter: rate.NewLimiter(limit, 1),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Name returns the wrapped engine's name.
func (g *Guarded) Name() string {
	return g.engine.Name()
}

// Search waits for the limiter, then queries the engine through the breaker.
// An open breaker fails fast with domain.ErrNetwork.
func (g *Guarded) Search(ctx context.Context, query string, limit int) ([]domain.WebResult, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit: %w", g.Name(), err)
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.engine.Search(ctx, query, limit)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: %w: %v", g.Name(), domain.ErrNetwork, err)
		}
		return nil, err
	}

	results, _ := out.([]domain.WebResult)
	return results, nil
}

// State reports the breaker state, for diagnostics.
func (g *Guarded) State() gobreaker.State {
	return g.breaker.State()
}
