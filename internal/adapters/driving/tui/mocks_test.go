package tui

import (
	"context"

	"github.com/custodia-labs/parley/internal/core/domain"
)

// MockOrchestrator implements driving.Orchestrator for TUI tests.
type MockOrchestrator struct {
	Answer   domain.Answer
	Sessions []*domain.ConversationSession
	Queries  []string
}

func (m *MockOrchestrator) NewSession() *domain.ConversationSession {
	s := domain.NewConversationSession("tui-test", domain.DefaultMaxTurns)
	m.Sessions = append(m.Sessions, s)
	return s
}

func (m *MockOrchestrator) Handle(
	_ context.Context, _ *domain.ConversationSession, query string, _ []string,
) domain.Answer {
	m.Queries = append(m.Queries, query)
	return m.Answer
}

func (m *MockOrchestrator) Welcome() string {
	return "Hello, ask me anything."
}

// MockKnowledgeService implements driving.KnowledgeService for TUI tests.
type MockKnowledgeService struct {
	StatsValue domain.KnowledgeStats
}

func (m *MockKnowledgeService) IngestPaths(_ context.Context, _ []string) (domain.IngestReport, error) {
	return domain.IngestReport{}, nil
}

func (m *MockKnowledgeService) Ingest(_ context.Context, _ []domain.IngestDocument) (domain.IngestReport, error) {
	return domain.IngestReport{}, nil
}

func (m *MockKnowledgeService) SimilaritySearch(_ context.Context, _ string, _ int) ([]domain.ScoredRecord, error) {
	return nil, nil
}

func (m *MockKnowledgeService) Stats() domain.KnowledgeStats { return m.StatsValue }

func (m *MockKnowledgeService) Clear(_ context.Context) error { return nil }
