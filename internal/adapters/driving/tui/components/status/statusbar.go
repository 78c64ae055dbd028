// Package status renders the line under the conversation: what parley is
// doing, how the last question was answered and the key hints.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/parley/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/parley/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/parley/internal/core/domain"
)

// State is what the bar is currently reporting.
type State string

const (
	StateReady    State = "ready"
	StateThinking State = "thinking"
	StateError    State = "error"
)

// Bar is a passive component: the chat view drives it through Start, Done
// and Fail, and forwards spinner ticks to Update.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	spinner spinner.Model

	state    State
	err      string
	tool     domain.RoutingTool
	fellBack bool
	took     time.Duration
	chunks   int
	width    int
}

// NewBar creates a bar in the ready state. Nil arguments use defaults.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{
		styles:  s,
		keymap:  km,
		spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		state:   StateReady,
		width:   80,
	}
}

// Update advances the spinner while a question is in flight.
func (b *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	tick, ok := msg.(spinner.TickMsg)
	if !ok || b.state != StateThinking {
		return b, nil
	}
	var cmd tea.Cmd
	b.spinner, cmd = b.spinner.Update(tick)
	return b, cmd
}

// Start switches to the thinking state and returns the first spinner tick.
func (b *Bar) Start() tea.Cmd {
	b.state = StateThinking
	b.err = ""
	return b.spinner.Tick
}

// Done records how the last question was answered.
func (b *Bar) Done(tool domain.RoutingTool, fellBack bool, took time.Duration) {
	b.state = StateReady
	b.err = ""
	b.tool, b.fellBack, b.took = tool, fellBack, took
}

// Fail shows err until the next question.
func (b *Bar) Fail(err error) {
	b.state = StateError
	b.err = ""
	if err != nil {
		b.err = err.Error()
	}
}

// View renders the bar on a single line of its width. Key hints that do
// not fit are dropped from the front, and a long status is cut short.
func (b *Bar) View() string {
	style := b.styles.StatusBar
	inner := max(1, b.width-style.GetHorizontalPadding())

	text, textStyle := b.status()
	hints := b.hints()
	for len(hints) > 0 && lipgloss.Width(text)+1+lipgloss.Width(joinHints(hints)) > inner {
		hints = hints[1:]
	}
	text = clip(text, inner)

	line := textStyle.Render(text)
	if len(hints) > 0 {
		right := joinHints(hints)
		gap := inner - lipgloss.Width(text) - lipgloss.Width(right)
		line += strings.Repeat(" ", gap) + b.styles.Muted.Render(right)
	}
	return style.Width(b.width).Render(line)
}

// status returns the unstyled status text and the style to draw it in.
func (b *Bar) status() (string, lipgloss.Style) {
	switch b.state {
	case StateThinking:
		return b.spinner.View() + " Thinking...", b.styles.Muted
	case StateError:
		if b.err == "" {
			return "Error", b.styles.Error
		}
		return "Error: " + b.err, b.styles.Error
	}

	parts := []string{"Ready"}
	if b.tool != "" {
		route := "via " + b.tool.Description()
		if b.fellBack {
			route += " (fallback)"
		}
		if b.took > 0 {
			route += " in " + b.took.Round(100*time.Millisecond).String()
		}
		parts = append(parts, route)
	}
	if b.chunks > 0 {
		parts = append(parts, fmt.Sprintf("%d chunks", b.chunks))
	}
	return strings.Join(parts, " | "), b.styles.Muted
}

func (b *Bar) hints() []string {
	bindings := b.keymap.ShortHelp()
	hints := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		hints = append(hints, h.Key+": "+h.Desc)
	}
	return hints
}

func joinHints(hints []string) string {
	return strings.Join(hints, " | ")
}

// clip cuts s to width cells, marking the cut with an ellipsis.
func clip(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

// State returns what the bar is reporting.
func (b *Bar) State() State { return b.state }

// Route returns the tool behind the last answer.
func (b *Bar) Route() (domain.RoutingTool, bool) { return b.tool, b.fellBack }

// SetChunks sets the knowledge-base size shown when ready.
func (b *Bar) SetChunks(n int) { b.chunks = n }

// Chunks returns the knowledge-base size shown.
func (b *Bar) Chunks() int { return b.chunks }

// SetWidth sets the rendered width.
func (b *Bar) SetWidth(width int) { b.width = width }
