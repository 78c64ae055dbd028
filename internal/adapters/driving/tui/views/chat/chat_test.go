package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/parley/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/parley/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/parley/internal/core/domain"
)

type mockOrchestrator struct {
	welcome  string
	answer   domain.Answer
	session  *domain.ConversationSession
	queries  []string
	sessions []*domain.ConversationSession
}

func (m *mockOrchestrator) NewSession() *domain.ConversationSession {
	m.session = domain.NewConversationSession("chat-test", domain.DefaultMaxTurns)
	return m.session
}

func (m *mockOrchestrator) Handle(
	_ context.Context, session *domain.ConversationSession, query string, _ []string,
) domain.Answer {
	m.queries = append(m.queries, query)
	m.sessions = append(m.sessions, session)
	return m.answer
}

func (m *mockOrchestrator) Welcome() string { return m.welcome }

type mockKnowledge struct {
	stats domain.KnowledgeStats
}

func (m *mockKnowledge) IngestPaths(_ context.Context, _ []string) (domain.IngestReport, error) {
	return domain.IngestReport{}, nil
}

func (m *mockKnowledge) Ingest(_ context.Context, _ []domain.IngestDocument) (domain.IngestReport, error) {
	return domain.IngestReport{}, nil
}

func (m *mockKnowledge) SimilaritySearch(_ context.Context, _ string, _ int) ([]domain.ScoredRecord, error) {
	return nil, nil
}

func (m *mockKnowledge) Stats() domain.KnowledgeStats { return m.stats }
func (m *mockKnowledge) Clear(_ context.Context) error { return nil }

func newTestView(orch *mockOrchestrator) *View {
	v := NewView(nil, nil, orch, &mockKnowledge{stats: domain.KnowledgeStats{TotalEmbeddings: 7}})
	v.SetDimensions(100, 30)
	return v
}

func typeText(v *View, text string) {
	for _, r := range text {
		v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// answerFrom runs cmd, including every command in a batch, and returns the
// answer it produced.
func answerFrom(t *testing.T, cmd tea.Cmd) messages.AnswerReceived {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if c == nil {
				continue
			}
			if answer, ok := c().(messages.AnswerReceived); ok {
				return answer
			}
		}
		t.Fatal("batch produced no answer")
	}
	answer, ok := msg.(messages.AnswerReceived)
	require.True(t, ok, "got %T", msg)
	return answer
}

func TestNewView_ShowsWelcome(t *testing.T) {
	orch := &mockOrchestrator{welcome: "Welcome! Ask about your documents."}
	v := newTestView(orch)

	assert.Equal(t, 1, v.EntryCount())
	assert.Contains(t, v.Transcript(), "Welcome! Ask about your documents.")
	assert.Same(t, orch.session, v.Session())
}

func TestNewView_NoWelcome(t *testing.T) {
	v := newTestView(&mockOrchestrator{})

	assert.Equal(t, 0, v.EntryCount())
}

func TestView_NotReadyBeforeSize(t *testing.T) {
	v := NewView(nil, nil, &mockOrchestrator{}, nil)

	assert.False(t, v.Ready())
	assert.Equal(t, "Initialising...", v.View())
}

func TestView_Submit(t *testing.T) {
	orch := &mockOrchestrator{answer: domain.Answer{
		Text:     "The report is due Friday.",
		Tool:     domain.ToolRAG,
		Sources:  []domain.SourceRef{{Name: "plan", Location: "/docs/plan.md", Kind: domain.SourceKindFile}},
		Notices:  []string{"Searching your documents."},
		FellBack: false,
	}}
	v := newTestView(orch)

	typeText(v, "  when is the report due?  ")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	assert.True(t, v.Pending())
	assert.Equal(t, "", v.Input().Value())
	assert.Equal(t, status.StateThinking, v.StatusBar().State())
	assert.Contains(t, v.Transcript(), "when is the report due?")

	received := answerFrom(t, cmd)
	assert.Equal(t, "when is the report due?", received.Query)
	assert.GreaterOrEqual(t, received.Took, time.Duration(0))
	assert.Same(t, v.Session(), orch.sessions[0])

	_, cmd = v.Update(received)
	assert.NotNil(t, cmd, "stats refresh after an answer")

	assert.False(t, v.Pending())
	assert.Equal(t, status.StateReady, v.StatusBar().State())
	tool, _ := v.StatusBar().Route()
	assert.Equal(t, domain.ToolRAG, tool)

	transcript := v.Transcript()
	assert.Contains(t, transcript, "The report is due Friday.")
	assert.Contains(t, transcript, "Searching your documents.")
	assert.Contains(t, transcript, "plan (/docs/plan.md)")
	assert.Contains(t, transcript, "knowledge base")
}

func TestView_Submit_EmptyIgnored(t *testing.T) {
	orch := &mockOrchestrator{}
	v := newTestView(orch)

	typeText(v, "   ")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.False(t, v.Pending())
}

func TestView_Submit_OneInFlight(t *testing.T) {
	v := newTestView(&mockOrchestrator{})

	typeText(v, "first")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	typeText(v, "second")
	assert.Equal(t, "", v.Input().Value(), "typing is ignored while waiting")

	_, cmd = v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestView_StatsLoaded(t *testing.T) {
	v := newTestView(&mockOrchestrator{})

	cmd := v.loadStats()
	require.NotNil(t, cmd)
	v.Update(cmd())

	assert.Equal(t, 7, v.StatusBar().Chunks())
}

func TestView_LoadStats_NoKnowledge(t *testing.T) {
	v := NewView(nil, nil, &mockOrchestrator{}, nil)

	assert.Nil(t, v.loadStats())
}

func TestView_ErrorOccurred(t *testing.T) {
	v := newTestView(&mockOrchestrator{})
	typeText(v, "q")
	v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, v.Input().Locked())

	v.Update(messages.ErrorOccurred{Err: errors.New("server unreachable")})

	assert.Equal(t, status.StateError, v.StatusBar().State())
	assert.Contains(t, v.Transcript(), "server unreachable")
	assert.False(t, v.Input().Locked(), "a failed question frees the input")
}

func TestView_RecallsSentQuestions(t *testing.T) {
	v := newTestView(&mockOrchestrator{})

	typeText(v, "first question")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	v.Update(answerFrom(t, cmd))
	require.False(t, v.Input().Locked())

	v.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "first question", v.Input().Value())

	v.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "", v.Input().Value())
}

func TestView_ClearInput(t *testing.T) {
	v := newTestView(&mockOrchestrator{})

	typeText(v, "draft")
	v.Update(tea.KeyMsg{Type: tea.KeyCtrlU})

	assert.Equal(t, "", v.Input().Value())
}

func TestView_Close(t *testing.T) {
	orch := &mockOrchestrator{}
	v := newTestView(orch)

	v.Close()

	assert.True(t, orch.session.Closed())
}

func TestView_Render(t *testing.T) {
	v := newTestView(&mockOrchestrator{welcome: "hi"})

	out := v.View()

	assert.Contains(t, out, "parley")
	assert.Contains(t, out, "enter: send")
}

func TestSourceLine(t *testing.T) {
	tests := []struct {
		name string
		src  domain.SourceRef
		want string
	}{
		{"name and location", domain.SourceRef{Name: "Paris", Location: "https://x/Paris"}, "Paris (https://x/Paris)"},
		{"location only", domain.SourceRef{Location: "https://x"}, "https://x"},
		{"same value", domain.SourceRef{Name: "https://x", Location: "https://x"}, "https://x"},
		{"name only", domain.SourceRef{Name: "notes"}, "notes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SourceLine(tt.src))
		})
	}
}
