package driven

import (
	"context"

	"github.com/custodia-labs/parley/internal/core/domain"
)

// TranscriptStore persists completed conversation turns.
type TranscriptStore interface {
	// Record saves one completed turn.
	Record(ctx context.Context, entry domain.TranscriptEntry) error

	// ListSession returns a session's turns, oldest first.
	ListSession(ctx context.Context, sessionID string) ([]domain.TranscriptEntry, error)

	// ListSessions returns up to limit sessions, most recently active first.
	ListSessions(ctx context.Context, limit int) ([]domain.SessionSummary, error)

	// Close releases resources.
	Close() error
}
