package mcp

import (
	"context"
	"sync"

	"github.com/custodia-labs/parley/internal/core/domain"
)

// mockOrchestrator is a mock implementation of driving.Orchestrator.
type mockOrchestrator struct {
	mu          sync.Mutex
	answer      domain.Answer
	created     int
	queries     []string
	sessions    []*domain.ConversationSession
	attachments [][]string
}

func (m *mockOrchestrator) NewSession() *domain.ConversationSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
	return domain.NewConversationSession("session", domain.DefaultMaxTurns)
}

func (m *mockOrchestrator) Handle(
	_ context.Context,
	session *domain.ConversationSession,
	query string,
	attachments []string,
) domain.Answer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	m.sessions = append(m.sessions, session)
	m.attachments = append(m.attachments, attachments)
	return m.answer
}

func (m *mockOrchestrator) Welcome() string { return "welcome" }

// mockKnowledgeService is a mock implementation of driving.KnowledgeService.
type mockKnowledgeService struct {
	hits  []domain.ScoredRecord
	stats domain.KnowledgeStats
	err   error
	k     int
}

func (m *mockKnowledgeService) IngestPaths(_ context.Context, _ []string) (domain.IngestReport, error) {
	return domain.IngestReport{}, m.err
}

func (m *mockKnowledgeService) Ingest(_ context.Context, _ []domain.IngestDocument) (domain.IngestReport, error) {
	return domain.IngestReport{}, m.err
}

func (m *mockKnowledgeService) SimilaritySearch(
	_ context.Context,
	_ string,
	k int,
) ([]domain.ScoredRecord, error) {
	m.k = k
	return m.hits, m.err
}

func (m *mockKnowledgeService) Stats() domain.KnowledgeStats { return m.stats }

func (m *mockKnowledgeService) Clear(_ context.Context) error { return m.err }
