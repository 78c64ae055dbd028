package domain

import "sync"

// DefaultMaxTurns is the rolling history bound.
const DefaultMaxTurns = 10

// Role identifies the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one message in the rolling history.
type ConversationTurn struct {
	Role    Role
	Content string
}

// ConversationSession owns the rolling history of one conversation.
// It is created when a user's connection starts and closed when it ends.
// A session is safe for concurrent use, although turns are expected to be
// handled one at a time.
type ConversationSession struct {
	mu       sync.Mutex
	id       string
	maxTurns int
	turns    []ConversationTurn
	onClose  []func()
	closed   bool
}

// NewConversationSession creates an empty session.
// A maxTurns of 0 or less uses DefaultMaxTurns.
func NewConversationSession(id string, maxTurns int) *ConversationSession {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &ConversationSession{id: id, maxTurns: maxTurns}
}

// ID returns the session identifier.
func (s *ConversationSession) ID() string {
	return s.id
}

// MaxTurns returns the history bound.
func (s *ConversationSession) MaxTurns() int {
	return s.maxTurns
}

// Append adds one turn and trims the history to the most recent maxTurns.
func (s *ConversationSession) Append(role Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.appendLocked(ConversationTurn{Role: role, Content: content})
	return nil
}

// AppendExchange records a user query and the assistant's answer as a pair.
func (s *ConversationSession) AppendExchange(query, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.appendLocked(ConversationTurn{Role: RoleUser, Content: query})
	s.appendLocked(ConversationTurn{Role: RoleAssistant, Content: answer})
	return nil
}

func (s *ConversationSession) appendLocked(turn ConversationTurn) {
	s.turns = append(s.turns, turn)
	if over := len(s.turns) - s.maxTurns; over > 0 {
		s.turns = append([]ConversationTurn(nil), s.turns[over:]...)
	}
}

// Recent returns a copy of the last n turns, oldest first.
// n is capped at the history bound.
func (s *ConversationSession) Recent(n int) []ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		return nil
	}
	if n > s.maxTurns {
		n = s.maxTurns
	}
	start := len(s.turns) - n
	if start < 0 {
		start = 0
	}
	return append([]ConversationTurn(nil), s.turns[start:]...)
}

// Turns returns a copy of the whole retained history.
func (s *ConversationSession) Turns() []ConversationTurn {
	return s.Recent(s.maxTurns)
}

// Len returns the number of retained turns.
func (s *ConversationSession) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// OnClose registers a release hook run once when the session closes.
// Hooks registered after Close run immediately.
func (s *ConversationSession) OnClose(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()
		return
	}
	s.onClose = append(s.onClose, fn)
	s.mu.Unlock()
}

// Close clears the history and runs the release hooks in reverse
// registration order. Calling Close more than once is a no-op.
func (s *ConversationSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.turns = nil
	hooks := s.onClose
	s.onClose = nil
	s.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
}

// Closed reports whether Close has been called.
func (s *ConversationSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
