package services

import (
	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
)

// buildMessages assembles a chat request: the system prompt, at most
// maxTurns of history (most recent kept) and the user message.
func buildMessages(system string, history []domain.ConversationTurn, maxTurns int, user string) []driven.ChatMessage {
	if maxTurns > 0 && len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}

	messages := make([]driven.ChatMessage, 0, len(history)+2)
	if system != "" {
		messages = append(messages, driven.ChatMessage{Role: string(domain.RoleSystem), Content: system})
	}
	for _, turn := range history {
		messages = append(messages, driven.ChatMessage{Role: string(turn.Role), Content: turn.Content})
	}
	return append(messages, driven.ChatMessage{Role: string(domain.RoleUser), Content: user})
}
