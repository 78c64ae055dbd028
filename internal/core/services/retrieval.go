package services

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
	"github.com/custodia-labs/parley/internal/core/ports/driving"
	"github.com/custodia-labs/parley/internal/logger"
)

// RetrievalService answers queries grounded on the knowledge base.
type RetrievalService struct {
	prompts

	knowledge driving.KnowledgeService
	llm       driven.LLMService
	maxTurns  int

	// fileExists filters attributions to files still on disk.
	fileExists func(path string) bool
}

// NewRetrievalService creates a retrieval service.
// A maxTurns of 0 or less uses domain.DefaultMaxTurns.
func NewRetrievalService(knowledge driving.KnowledgeService, llm driven.LLMService, maxTurns int) *RetrievalService {
	if maxTurns <= 0 {
		maxTurns = domain.DefaultMaxTurns
	}
	return &RetrievalService{
		knowledge:  knowledge,
		llm:        llm,
		maxTurns:   maxTurns,
		fileExists: fileExists,
	}
}

// SimilaritySearch returns the k records nearest to the query.
func (s *RetrievalService) SimilaritySearch(ctx context.Context, query string, k int) ([]domain.ScoredRecord, error) {
	return s.knowledge.SimilaritySearch(ctx, query, k)
}

// AnswerWithContext retrieves the top k records, grounds one chat call on
// them and returns the reply with the files it drew on.
// Fails with domain.ErrEmptyKnowledgeBase when there is nothing to search.
func (s *RetrievalService) AnswerWithContext(
	ctx context.Context, query string, k int, history []domain.ConversationTurn,
) (domain.GroundedAnswer, error) {
	if s.knowledge.Stats().TotalDocuments == 0 {
		return domain.GroundedAnswer{}, domain.ErrEmptyKnowledgeBase
	}
	if s.llm == nil {
		return domain.GroundedAnswer{}, fmt.Errorf("rag answer: %w", domain.ErrLLMUnavailable)
	}

	hits, err := s.knowledge.SimilaritySearch(ctx, query, k)
	if err != nil {
		return domain.GroundedAnswer{}, fmt.Errorf("rag search: %w", err)
	}
	logger.Debug("RAG retrieved %d records", len(hits))

	user := fmt.Sprintf("Knowledge base: %s\n\nQuery: %s", formatRecords(hits), query)
	messages := buildMessages(s.load(driven.PromptRAGSystem), history, s.maxTurns, user)

	text, err := s.llm.Chat(ctx, messages, driven.ChatOptions{})
	if err != nil {
		return domain.GroundedAnswer{}, fmt.Errorf("rag chat: %w", err)
	}

	return domain.GroundedAnswer{
		Text:    text,
		Sources: s.fileSources(hits),
	}, nil
}

// fileSources returns the unique files referenced by hits, in rank order.
// Files no longer on disk are omitted.
func (s *RetrievalService) fileSources(hits []domain.ScoredRecord) []domain.SourceRef {
	type key struct{ name, path string }
	seen := make(map[key]bool)

	var sources []domain.SourceRef
	for _, hit := range hits {
		k := key{
			name: hit.Record.Metadata[domain.MetaFileName],
			path: hit.Record.Metadata[domain.MetaFilePath],
		}
		if k.path == "" || seen[k] {
			continue
		}
		seen[k] = true
		if !s.fileExists(k.path) {
			logger.Debug("Omitting missing source %s", k.path)
			continue
		}
		sources = append(sources, domain.SourceRef{
			Name:     k.name,
			Location: k.path,
			Kind:     domain.SourceKindFile,
		})
	}
	return sources
}

// formatRecords renders hits as the knowledge-base context block.
func formatRecords(hits []domain.ScoredRecord) string {
	parts := make([]string, len(hits))
	for i, hit := range hits {
		parts[i] = fmt.Sprintf("Document: %s\nMetadata: %s", hit.Record.Document, formatMetadata(hit.Record.Metadata))
	}
	return strings.Join(parts, "\n")
}

// formatMetadata renders metadata with sorted keys.
func formatMetadata(meta map[string]string) string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + ": " + meta[k]
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
