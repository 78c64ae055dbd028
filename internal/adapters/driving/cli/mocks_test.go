package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/custodia-labs/parley/internal/adapters/driving/mcp"
	"github.com/custodia-labs/parley/internal/core/domain"
)

// mockOrchestrator answers every question with a fixed answer.
type mockOrchestrator struct {
	answer      domain.Answer
	welcome     string
	sessions    []*domain.ConversationSession
	queries     []string
	attachments [][]string
}

func (m *mockOrchestrator) NewSession() *domain.ConversationSession {
	s := domain.NewConversationSession("cli-session", domain.DefaultMaxTurns)
	m.sessions = append(m.sessions, s)
	return s
}

func (m *mockOrchestrator) Handle(
	_ context.Context, _ *domain.ConversationSession, query string, attachments []string,
) domain.Answer {
	m.queries = append(m.queries, query)
	m.attachments = append(m.attachments, attachments)
	return m.answer
}

func (m *mockOrchestrator) Welcome() string { return m.welcome }

// mockKnowledgeService records calls and returns fixed results.
type mockKnowledgeService struct {
	report   domain.IngestReport
	err      error
	hits     []domain.ScoredRecord
	stats    domain.KnowledgeStats
	paths    [][]string
	k        int
	cleared  bool
	clearErr error
}

func (m *mockKnowledgeService) IngestPaths(_ context.Context, paths []string) (domain.IngestReport, error) {
	m.paths = append(m.paths, paths)
	return m.report, m.err
}

func (m *mockKnowledgeService) Ingest(_ context.Context, _ []domain.IngestDocument) (domain.IngestReport, error) {
	return m.report, m.err
}

func (m *mockKnowledgeService) SimilaritySearch(_ context.Context, _ string, k int) ([]domain.ScoredRecord, error) {
	m.k = k
	return m.hits, m.err
}

func (m *mockKnowledgeService) Stats() domain.KnowledgeStats { return m.stats }

func (m *mockKnowledgeService) Clear(_ context.Context) error {
	m.cleared = true
	return m.clearErr
}

// mockSettingsService keeps settings in memory.
type mockSettingsService struct {
	settings    domain.AppSettings
	values      map[string]string
	setErr      error
	validateErr error
	pingErr     error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		settings: domain.DefaultAppSettings(),
		values:   make(map[string]string),
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"llm.provider", "llm.model", "search.engine"}
}

func (m *mockSettingsService) Validate() error                { return m.validateErr }
func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.pingErr }
func (m *mockSettingsService) ValidateLLMConfig() error       { return m.pingErr }

// mockTranscriptService serves fixed entries.
type mockTranscriptService struct {
	entries  []domain.TranscriptEntry
	sessions []domain.SessionSummary
	err      error
	limit    int
}

func (m *mockTranscriptService) List(_ context.Context, sessionID string) ([]domain.TranscriptEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.TranscriptEntry
	for _, e := range m.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockTranscriptService) Sessions(_ context.Context, limit int) ([]domain.SessionSummary, error) {
	m.limit = limit
	return m.sessions, m.err
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	orchestrator *mockOrchestrator
	knowledge    *mockKnowledgeService
	settings     *mockSettingsService
	transcripts  *mockTranscriptService
}

// setupTestServices installs mock services and returns them with a cleanup
// that restores the previous services and flag values.
func setupTestServices() (*testServices, func()) {
	prev := Services{
		Orchestrator: orchestrator,
		Knowledge:    knowledgeService,
		Settings:     settingsService,
		Transcripts:  transcriptService,
	}

	ts := &testServices{
		orchestrator: &mockOrchestrator{answer: domain.Answer{Text: "mock answer", Tool: domain.ToolLLM}},
		knowledge:    &mockKnowledgeService{},
		settings:     newMockSettingsService(),
		transcripts:  &mockTranscriptService{},
	}
	SetServices(Services{
		Orchestrator: ts.orchestrator,
		Knowledge:    ts.knowledge,
		Settings:     ts.settings,
		Transcripts:  ts.transcripts,
	})

	return ts, func() {
		SetServices(prev)
		askAttachments = nil
		askJSON = false
		chatPlain = false
		ingestWatch = false
		kbSearchK = 5
		kbStatsJSON = false
		kbClearForce = false
		transcriptLimit = 20
		mcpPort = 0
		mcpMaxSessions = mcp.DefaultMaxSessions
	}
}

// executeCommand runs the root command with args and stdin, returning
// combined output.
func executeCommand(stdin string, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	var in io.Reader = strings.NewReader(stdin)
	rootCmd.SetIn(in)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func fixedTime() time.Time {
	return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}
