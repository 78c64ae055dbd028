// Package messages holds the tea.Msg types passed between TUI components.
package messages

import (
	"time"

	"github.com/custodia-labs/parley/internal/core/domain"
)

// AnswerReceived is a finished turn. Took is the wall time spent in the
// orchestrator.
type AnswerReceived struct {
	Query  string
	Answer domain.Answer
	Took   time.Duration
}

// StatsLoaded carries knowledge-base totals.
type StatsLoaded struct {
	Stats domain.KnowledgeStats
}

// ErrorOccurred reports a failure outside a turn.
type ErrorOccurred struct {
	Err error
}

// Screen is a full-window page of the app.
type Screen int

const (
	ScreenChat Screen = iota
	ScreenHelp
)

func (s Screen) String() string {
	switch s {
	case ScreenChat:
		return "chat"
	case ScreenHelp:
		return "help"
	}
	return "unknown"
}

// Toggle flips between the conversation and help.
func (s Screen) Toggle() Screen {
	if s == ScreenHelp {
		return ScreenChat
	}
	return ScreenHelp
}

// ShowScreen asks the app to switch screens.
type ShowScreen struct {
	Screen Screen
}

// Quit asks the app to exit.
type Quit struct{}
