// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/parley/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/parley/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/parley/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/parley/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/parley/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driving"
)

// Lines reserved around the conversation pane: header, input box, status bar
// and the pane's own border.
const chromeLines = 8

// entry is one rendered message.
type entry struct {
	role    domain.Role
	text    string
	answer  *domain.Answer
	isError bool
}

// View represents the conversation: a scrolling transcript above an input line.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.Composer
	pane      viewport.Model
	statusbar *status.Bar

	orchestrator driving.Orchestrator
	knowledge    driving.KnowledgeService
	session      *domain.ConversationSession
	ctx          context.Context

	entries []entry
	pending bool
	width   int
	height  int
	ready   bool
}

// NewView creates a conversation view with a fresh session.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	orchestrator driving.Orchestrator,
	knowledge driving.KnowledgeService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	v := &View{
		styles:       s,
		keymap:       km,
		input:        input.NewComposer(s),
		pane:         viewport.New(80, 24-chromeLines),
		statusbar:    status.NewBar(s, km),
		orchestrator: orchestrator,
		knowledge:    knowledge,
		session:      orchestrator.NewSession(),
		ctx:          context.Background(),
		width:        80,
		height:       24,
	}
	if welcome := orchestrator.Welcome(); welcome != "" {
		v.entries = append(v.entries, entry{role: domain.RoleAssistant, text: welcome})
	}
	v.refresh()
	return v
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.input.Init(), v.loadStats())
}

// Update handles messages for the conversation view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, v.loadStats()

	case messages.StatsLoaded:
		v.statusbar.SetChunks(msg.Stats.TotalEmbeddings)
		return v, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.statusbar, cmd = v.statusbar.Update(msg)
		return v, cmd

	case messages.ErrorOccurred:
		v.pending = false
		v.input.Unlock()
		v.statusbar.Fail(msg.Err)
		v.entries = append(v.entries, entry{role: domain.RoleAssistant, text: msg.Err.Error(), isError: true})
		v.refresh()
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	keyStr := msg.String()

	switch {
	case keymap.Matches(keyStr, v.keymap.Send):
		return v, v.submit()

	case keymap.Matches(keyStr, v.keymap.ScrollUp):
		v.pane.HalfViewUp()
		return v, nil

	case keymap.Matches(keyStr, v.keymap.ScrollDown):
		v.pane.HalfViewDown()
		return v, nil

	case keymap.Matches(keyStr, v.keymap.Clear):
		v.input.Reset()
		return v, nil

	case keymap.Matches(keyStr, v.keymap.Previous):
		v.input.Recall(-1)
		return v, nil

	case keymap.Matches(keyStr, v.keymap.Next):
		v.input.Recall(1)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit sends the current input to the orchestrator.
// Only one question is in flight at a time.
func (v *View) submit() tea.Cmd {
	if v.pending {
		return nil
	}
	query, ok := v.input.Submit()
	if !ok {
		return nil
	}

	v.input.Lock("Thinking...")
	v.pending = true
	v.entries = append(v.entries, entry{role: domain.RoleUser, text: query})
	v.refresh()

	return tea.Batch(v.ask(query), v.statusbar.Start())
}

// ask runs the orchestrator off the UI goroutine.
func (v *View) ask(query string) tea.Cmd {
	ctx, session, orchestrator := v.ctx, v.session, v.orchestrator
	return func() tea.Msg {
		start := time.Now()
		answer := orchestrator.Handle(ctx, session, query, nil)
		return messages.AnswerReceived{Query: query, Answer: answer, Took: time.Since(start)}
	}
}

// loadStats reads knowledge-base totals for the status bar.
func (v *View) loadStats() tea.Cmd {
	if v.knowledge == nil {
		return nil
	}
	knowledge := v.knowledge
	return func() tea.Msg {
		return messages.StatsLoaded{Stats: knowledge.Stats()}
	}
}

// handleAnswer appends the answer and re-enables input.
func (v *View) handleAnswer(msg messages.AnswerReceived) {
	answer := msg.Answer
	v.pending = false
	v.input.Unlock()
	v.statusbar.Done(answer.Tool, answer.FellBack, msg.Took)
	v.entries = append(v.entries, entry{role: domain.RoleAssistant, text: answer.Text, answer: &answer})
	v.refresh()
}

// refresh re-renders the transcript and scrolls to the newest message.
func (v *View) refresh() {
	v.pane.SetContent(v.renderTranscript())
	v.pane.GotoBottom()
}

// renderTranscript renders every entry, wrapped to the pane width.
func (v *View) renderTranscript() string {
	wrap := lipgloss.NewStyle().Width(max(20, v.pane.Width-2))

	blocks := make([]string, 0, len(v.entries))
	for _, e := range v.entries {
		var b strings.Builder
		if e.role == domain.RoleUser {
			b.WriteString(v.styles.User.Render("You"))
		} else {
			b.WriteString(v.styles.Assistant.Render("Assistant"))
			if e.answer != nil {
				b.WriteString(" " + v.styles.ToolBadge(e.answer.Tool))
			}
		}
		b.WriteString("\n")

		if e.answer != nil {
			for _, notice := range e.answer.Notices {
				b.WriteString(v.styles.Notice.Render(wrap.Render(notice)) + "\n")
			}
		}

		body := wrap.Render(e.text)
		if e.isError {
			body = v.styles.Error.Render(body)
		} else {
			body = v.styles.Normal.Render(body)
		}
		b.WriteString(body)

		if e.answer != nil && len(e.answer.Sources) > 0 {
			b.WriteString("\n" + v.styles.Source.Render("Sources:"))
			for _, src := range e.answer.Sources {
				b.WriteString("\n" + v.styles.Source.Render("  - "+SourceLine(src)))
			}
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// SourceLine formats one source for display.
func SourceLine(src domain.SourceRef) string {
	if src.Location == "" || src.Location == src.Name {
		return src.Name
	}
	if src.Name == "" {
		return src.Location
	}
	return src.Name + " (" + src.Location + ")"
}

// View renders the conversation view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	header := v.styles.Title.Render("parley") + " " + v.styles.Muted.Render("knowledge base, web and page answers")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		v.styles.Border.Width(v.width-2).Render(v.pane.View()),
		v.input.View(),
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.pane.Width = max(20, width-4)
	v.pane.Height = max(3, height-chromeLines)
	v.refresh()
}

// Close ends the conversation session.
func (v *View) Close() {
	v.session.Close()
}

// Session returns the conversation session.
func (v *View) Session() *domain.ConversationSession {
	return v.session
}

// Pending reports whether a question is awaiting its answer.
func (v *View) Pending() bool {
	return v.pending
}

// Transcript returns the rendered conversation.
func (v *View) Transcript() string {
	return v.renderTranscript()
}

// EntryCount returns the number of messages shown.
func (v *View) EntryCount() int {
	return len(v.entries)
}

// StatusBar returns the view's status bar.
func (v *View) StatusBar() *status.Bar {
	return v.statusbar
}

// Input returns the message input.
func (v *View) Input() *input.Composer {
	return v.input
}

// Ready reports whether the view has been sized.
func (v *View) Ready() bool {
	return v.ready
}
