package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
	"github.com/custodia-labs/parley/internal/core/ports/driving"
)

// Ensure TranscriptService implements the interface.
var _ driving.TranscriptService = (*TranscriptService)(nil)

// TranscriptService reads recorded conversation turns.
type TranscriptService struct {
	store driven.TranscriptStore
}

// NewTranscriptService creates a transcript service.
func NewTranscriptService(store driven.TranscriptStore) *TranscriptService {
	return &TranscriptService{store: store}
}

// List returns a session's turns, oldest first.
func (s *TranscriptService) List(ctx context.Context, sessionID string) ([]domain.TranscriptEntry, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	if s.store == nil {
		return nil, fmt.Errorf("%w: transcripts are disabled", domain.ErrNotFound)
	}
	return s.store.ListSession(ctx, sessionID)
}

// DefaultSessionLimit is the number of sessions listed when none is given.
const DefaultSessionLimit = 20

// Sessions returns up to limit sessions, most recently active first.
func (s *TranscriptService) Sessions(ctx context.Context, limit int) ([]domain.SessionSummary, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: transcripts are disabled", domain.ErrNotFound)
	}
	if limit <= 0 {
		limit = DefaultSessionLimit
	}
	return s.store.ListSessions(ctx, limit)
}
