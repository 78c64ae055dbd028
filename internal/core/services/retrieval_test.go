package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
)

func scored(id, doc, name, path string, sim float64) domain.ScoredRecord {
	return domain.ScoredRecord{
		Record: domain.VectorRecord{
			ID:       id,
			Document: doc,
			Metadata: map[string]string{
				domain.MetaFileName:   name,
				domain.MetaFilePath:   path,
				domain.MetaChunkIndex: "0",
			},
		},
		Similarity: sim,
	}
}

func newTestRetrieval(store *stubStore, llm *stubLLM) *RetrievalService {
	knowledge := NewKnowledgeService(store, &stubEmbedder{}, nil)
	service := NewRetrievalService(knowledge, llm, 4)
	service.fileExists = func(path string) bool { return path != "/gone.txt" }
	return service
}

func TestRetrievalService_AnswerWithContext(t *testing.T) {
	store := &stubStore{
		stats: domain.KnowledgeStats{TotalDocuments: 3},
		hits: []domain.ScoredRecord{
			scored("a_0", "Go has goroutines.", "a.txt", "/a.txt", 0.9),
			scored("a_1", "Channels connect them.", "a.txt", "/a.txt", 0.8),
			scored("b_0", "Old notes.", "b.txt", "/gone.txt", 0.7),
		},
	}
	llm := &stubLLM{respond: func([]driven.ChatMessage) (string, error) { return "Use goroutines.", nil }}
	service := newTestRetrieval(store, llm)

	history := []domain.ConversationTurn{
		{Role: domain.RoleUser, Content: "q1"},
		{Role: domain.RoleAssistant, Content: "a1"},
		{Role: domain.RoleUser, Content: "q2"},
		{Role: domain.RoleAssistant, Content: "a2"},
		{Role: domain.RoleUser, Content: "q3"},
		{Role: domain.RoleAssistant, Content: "a3"},
	}

	answer, err := service.AnswerWithContext(context.Background(), "How does Go do concurrency?", 3, history)
	require.NoError(t, err)

	assert.Equal(t, "Use goroutines.", answer.Text)
	assert.Equal(t, []domain.SourceRef{{Name: "a.txt", Location: "/a.txt", Kind: domain.SourceKindFile}}, answer.Sources)

	messages := llm.last()
	require.Len(t, messages, 6, "system + 4 history turns + user")
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, defaultRAGPrompt, messages[0].Content)
	assert.Equal(t, "q2", messages[1].Content)
	assert.Equal(t, "a3", messages[4].Content)

	user := messages[5]
	assert.Equal(t, "user", user.Role)
	assert.Equal(t,
		"Knowledge base: Document: Go has goroutines.\n"+
			"Metadata: {chunk_index: 0, file_name: a.txt, file_path: /a.txt}\n"+
			"Document: Channels connect them.\n"+
			"Metadata: {chunk_index: 0, file_name: a.txt, file_path: /a.txt}\n"+
			"Document: Old notes.\n"+
			"Metadata: {chunk_index: 0, file_name: b.txt, file_path: /gone.txt}"+
			"\n\nQuery: How does Go do concurrency?",
		user.Content)
}

func TestRetrievalService_EmptyKnowledgeBase(t *testing.T) {
	llm := &stubLLM{}
	service := newTestRetrieval(&stubStore{}, llm)

	_, err := service.AnswerWithContext(context.Background(), "anything", 5, nil)
	assert.True(t, errors.Is(err, domain.ErrEmptyKnowledgeBase))
	assert.Zero(t, llm.calls(), "empty knowledge base must not reach the model")
}

func TestRetrievalService_ChatFailure(t *testing.T) {
	store := &stubStore{
		stats: domain.KnowledgeStats{TotalDocuments: 1},
		hits:  []domain.ScoredRecord{scored("a_0", "text", "a.txt", "/a.txt", 1)},
	}
	llm := &stubLLM{respond: func([]driven.ChatMessage) (string, error) {
		return "", domain.ErrLLMUnavailable
	}}

	_, err := newTestRetrieval(store, llm).AnswerWithContext(context.Background(), "q", 1, nil)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestRetrievalService_UsesPromptStore(t *testing.T) {
	store := &stubStore{
		stats: domain.KnowledgeStats{TotalDocuments: 1},
		hits:  []domain.ScoredRecord{scored("a_0", "text", "a.txt", "/a.txt", 1)},
	}
	llm := &stubLLM{}
	service := newTestRetrieval(store, llm)
	service.SetPromptStore(&stubPromptStore{prompts: map[string]string{driven.PromptRAGSystem: "custom rag"}})

	_, err := service.AnswerWithContext(context.Background(), "q", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "custom rag", llm.last()[0].Content)
}

func TestRetrievalService_SimilaritySearch(t *testing.T) {
	store := &stubStore{hits: []domain.ScoredRecord{scored("a_0", "text", "a.txt", "/a.txt", 1)}}
	hits, err := newTestRetrieval(store, &stubLLM{}).SimilaritySearch(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestFormatMetadata(t *testing.T) {
	assert.Equal(t, "{}", formatMetadata(nil))
	assert.Equal(t, "{a: 1, b: 2}", formatMetadata(map[string]string{"b": "2", "a": "1"}))
}

func TestBuildMessages(t *testing.T) {
	history := []domain.ConversationTurn{
		{Role: domain.RoleUser, Content: "old"},
		{Role: domain.RoleAssistant, Content: "older answer"},
		{Role: domain.RoleUser, Content: "recent"},
	}

	messages := buildMessages("sys", history, 2, "now")
	require.Len(t, messages, 4)
	assert.Equal(t, "older answer", messages[1].Content)
	assert.Equal(t, "now", messages[3].Content)

	messages = buildMessages("", nil, 0, "only")
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].Role)
}
