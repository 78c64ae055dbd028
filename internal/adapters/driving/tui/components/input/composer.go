// Package input provides the line where questions are typed.
package input

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/parley/internal/adapters/driving/tui/styles"
)

const (
	// MaxQuestionLength bounds a single question in runes.
	MaxQuestionLength = 4096

	// recallSize is how many sent questions can be recalled.
	recallSize = 50

	idlePlaceholder = "Ask a question..."
)

// Composer is a single-line question editor. It remembers sent questions
// for recall and can be locked while an answer is pending.
type Composer struct {
	field  textinput.Model
	styles *styles.Styles
	width  int

	sent   []string
	recall int
	draft  string

	locked bool
}

// NewComposer returns a focused, empty composer.
func NewComposer(s *styles.Styles) *Composer {
	if s == nil {
		s = styles.DefaultStyles()
	}

	field := textinput.New()
	field.Prompt = "> "
	field.Placeholder = idlePlaceholder
	field.CharLimit = MaxQuestionLength
	field.Focus()

	c := &Composer{field: field, styles: s}
	c.SetWidth(60)
	return c
}

// Init starts the cursor blinking.
func (c *Composer) Init() tea.Cmd {
	return textinput.Blink
}

// Update edits the line. Keys are dropped while locked.
func (c *Composer) Update(msg tea.Msg) (*Composer, tea.Cmd) {
	if _, isKey := msg.(tea.KeyMsg); isKey && c.locked {
		return c, nil
	}
	var cmd tea.Cmd
	c.field, cmd = c.field.Update(msg)
	return c, cmd
}

// Submit takes the trimmed line, clears it and remembers it for recall.
// It reports false for a blank line or while locked.
func (c *Composer) Submit() (string, bool) {
	if c.locked {
		return "", false
	}
	question := strings.TrimSpace(c.field.Value())
	if question == "" {
		return "", false
	}

	if n := len(c.sent); n == 0 || c.sent[n-1] != question {
		c.sent = append(c.sent, question)
		if len(c.sent) > recallSize {
			c.sent = c.sent[len(c.sent)-recallSize:]
		}
	}
	c.Reset()
	return question, true
}

// Recall moves through sent questions: -1 goes back, +1 forward. Moving
// past the newest restores the line that was being typed.
func (c *Composer) Recall(step int) {
	if c.locked || len(c.sent) == 0 {
		return
	}
	if c.recall == len(c.sent) {
		c.draft = c.field.Value()
	}

	c.recall = min(max(c.recall+step, 0), len(c.sent))
	if c.recall == len(c.sent) {
		c.field.SetValue(c.draft)
	} else {
		c.field.SetValue(c.sent[c.recall])
	}
	c.field.CursorEnd()
}

// Lock blocks editing and shows why in the placeholder.
func (c *Composer) Lock(reason string) {
	c.locked = true
	c.field.Placeholder = reason
}

// Unlock re-enables editing.
func (c *Composer) Unlock() {
	c.locked = false
	c.field.Placeholder = idlePlaceholder
}

// Locked reports whether editing is blocked.
func (c *Composer) Locked() bool { return c.locked }

// View renders the boxed line, with a rune counter once the question is
// close to the limit.
func (c *Composer) View() string {
	line := c.field.View()
	if n := len([]rune(c.field.Value())); n > MaxQuestionLength*9/10 {
		line += c.styles.Muted.Render(fmt.Sprintf("  %d/%d", n, MaxQuestionLength))
	}
	return c.styles.InputField.Width(max(1, c.width-2)).Render(line)
}

// Value returns the line as typed.
func (c *Composer) Value() string { return c.field.Value() }

// SetValue replaces the line.
func (c *Composer) SetValue(value string) { c.field.SetValue(value) }

// Reset clears the line and the recall position.
func (c *Composer) Reset() {
	c.field.Reset()
	c.recall = len(c.sent)
	c.draft = ""
}

// Focused reports whether the line has the cursor.
func (c *Composer) Focused() bool { return c.field.Focused() }

// SetWidth fits the line to width, leaving room for the box, the prompt
// and the counter.
func (c *Composer) SetWidth(width int) {
	c.width = width
	c.field.Width = max(20, width-18)
}

// Width returns the outer width.
func (c *Composer) Width() int { return c.width }
