package driving

import (
	"context"

	"github.com/custodia-labs/parley/internal/core/domain"
)

// TranscriptService reads recorded conversation turns.
type TranscriptService interface {
	// List returns a session's turns, oldest first.
	List(ctx context.Context, sessionID string) ([]domain.TranscriptEntry, error)

	// Sessions returns up to limit sessions, most recently active first.
	Sessions(ctx context.Context, limit int) ([]domain.SessionSummary, error)
}
