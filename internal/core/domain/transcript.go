package domain

import "time"

// TranscriptEntry records one completed turn.
type TranscriptEntry struct {
	// ID is the entry identifier.
	ID string

	// SessionID links the entry to its conversation.
	SessionID string

	// Query is the user's message as typed.
	Query string

	// Answer is the text returned to the user.
	Answer string

	// Tool is the branch that produced the answer.
	Tool RoutingTool

	// FellBack is true when the answer came from the INTERNET fallback.
	FellBack bool

	// Sources lists the attributions sent with the answer.
	Sources []SourceRef

	// CreatedAt is when the turn completed.
	CreatedAt time.Time
}

// SessionSummary describes one recorded conversation.
type SessionSummary struct {
	// ID is the session identifier.
	ID string

	// Turns is the number of recorded turns.
	Turns int

	// StartedAt and LastAt bound the recorded turns.
	StartedAt time.Time
	LastAt    time.Time
}
