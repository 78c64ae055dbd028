package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/parley/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/parley/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/parley/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/parley/internal/adapters/driving/tui/views/chat"
)

const routingHelp = "Questions are answered from your knowledge base, a web search, a page\n" +
	"extraction or the language model alone. The last turns are remembered\n" +
	"for follow-up questions until you quit."

// App is the root tea.Model. It owns one conversation for its lifetime
// and switches between the chat and help screens.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap
	help   help.Model

	chat   *chat.View
	screen messages.Screen

	width, height int
	ready         bool
}

var _ tea.Model = (*App)(nil)

// NewApp opens a conversation session; Close ends it.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	h := help.New()
	h.ShowAll = true

	return &App{
		ports:  ports,
		ctx:    context.Background(),
		styles: s,
		keymap: km,
		help:   h,
		chat:   chat.NewView(s, km, ports.Orchestrator, ports.Knowledge),
		screen: messages.ScreenChat,
	}, nil
}

// WithContext sets the context questions are answered under.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chat.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(tea.SetWindowTitle("parley"), a.chat.Init())
}

// Update implements tea.Model. Anything that is not a key, a resize or a
// screen change belongs to the conversation.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil
	case tea.KeyMsg:
		return a, a.handleKey(msg)
	case messages.ShowScreen:
		a.screen = msg.Screen
		return a, nil
	case messages.Quit:
		return a, tea.Quit
	}

	var cmd tea.Cmd
	a.chat, cmd = a.chat.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	k := msg.String()
	switch {
	case keymap.Matches(k, a.keymap.Quit):
		return tea.Quit
	case keymap.Matches(k, a.keymap.Help):
		a.screen = a.screen.Toggle()
		return nil
	case a.screen == messages.ScreenHelp:
		if keymap.Matches(k, a.keymap.Back) {
			a.screen = messages.ScreenChat
		}
		return nil
	}

	var cmd tea.Cmd
	a.chat, cmd = a.chat.Update(msg)
	return cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	if a.screen == messages.ScreenHelp {
		return lipgloss.JoinVertical(lipgloss.Left,
			a.styles.Title.Render("Help"),
			"",
			a.help.View(a.keymap),
			"",
			a.styles.Help.Render(routingHelp),
		)
	}
	return a.chat.View()
}

// Run blocks until the user quits, then closes the session.
func (a *App) Run() error {
	defer a.Close()
	_, err := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx)).Run()
	return err
}

// Close ends the conversation session.
func (a *App) Close() {
	a.chat.Close()
}

// Screen returns the visible screen.
func (a *App) Screen() messages.Screen {
	return a.screen
}

// Chat returns the conversation view.
func (a *App) Chat() *chat.View {
	return a.chat
}

// Ready reports whether the terminal size is known.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions resizes every screen.
func (a *App) SetDimensions(width, height int) {
	a.width, a.height = width, height
	a.ready = true
	a.help.Width = width
	a.chat.SetDimensions(width, height)
}
