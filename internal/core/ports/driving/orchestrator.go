package driving

import (
	"context"

	"github.com/custodia-labs/parley/internal/core/domain"
)

// Orchestrator answers conversational queries by routing each one to the
// knowledge base, the web, a single page, or the model directly.
type Orchestrator interface {
	// NewSession starts a conversation with an empty rolling history.
	// The caller owns the session and must Close it when the conversation ends.
	NewSession() *domain.ConversationSession

	// Handle answers one query. Attachments are file paths whose text is
	// added to the prompt and then ingested. Handle always returns a
	// sendable answer; branch failures become fallbacks and notices.
	Handle(ctx context.Context, session *domain.ConversationSession, query string, attachments []string) domain.Answer

	// Welcome returns the greeting shown when a session starts.
	Welcome() string
}
