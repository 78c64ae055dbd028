package services

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
	"github.com/custodia-labs/parley/internal/logger"
)

// MinPageChars is the least extracted text a page answer is grounded on.
const MinPageChars = 50

// PageExtractionService answers queries from the text of a single page.
type PageExtractionService struct {
	prompts

	extractor driven.PageExtractor
	llm       driven.LLMService
	maxChars  int
	maxTurns  int
}

// NewPageExtractionService creates a page extraction service.
// Non-positive limits use DefaultPageChars and domain.DefaultMaxTurns.
func NewPageExtractionService(
	extractor driven.PageExtractor, llm driven.LLMService, maxChars, maxTurns int,
) *PageExtractionService {
	if maxChars <= 0 {
		maxChars = DefaultPageChars
	}
	if maxTurns <= 0 {
		maxTurns = domain.DefaultMaxTurns
	}
	return &PageExtractionService{
		extractor: extractor,
		llm:       llm,
		maxChars:  maxChars,
		maxTurns:  maxTurns,
	}
}

// Extract returns at most maxChars characters of the page text.
// A non-positive maxChars uses the configured limit.
// Failures are reported in-band as a page with Length 0.
func (s *PageExtractionService) Extract(ctx context.Context, url string, maxChars int) domain.PageContent {
	if maxChars <= 0 {
		maxChars = s.maxChars
	}
	return s.extractor.Extract(ctx, url, maxChars)
}

// AnswerFromPage extracts url and grounds one chat call on its text.
// Fails with domain.ErrExtraction when the page yields fewer than
// MinPageChars characters.
func (s *PageExtractionService) AnswerFromPage(
	ctx context.Context, query, url string, history []domain.ConversationTurn,
) (domain.GroundedAnswer, error) {
	page := s.Extract(ctx, url, s.maxChars)
	if n := utf8.RuneCountInString(page.Content); page.Failed() || n < MinPageChars {
		logger.Warn("Extraction of %s too short (%d chars): %s", url, n, page.Content)
		return domain.GroundedAnswer{}, fmt.Errorf("%w: %s", domain.ErrExtraction, url)
	}
	if s.llm == nil {
		return domain.GroundedAnswer{}, fmt.Errorf("page answer: %w", domain.ErrLLMUnavailable)
	}

	user := fmt.Sprintf("Page: %s\nURL: %s\nContent: %s\n\nQuestion: %s", page.Title, page.URL, page.Content, query)
	messages := buildMessages(s.load(driven.PromptScrapingSystem), history, s.maxTurns, user)

	text, err := s.llm.Chat(ctx, messages, driven.ChatOptions{})
	if err != nil {
		return domain.GroundedAnswer{}, fmt.Errorf("page chat: %w", err)
	}
	return domain.GroundedAnswer{
		Text:    text,
		Sources: []domain.SourceRef{{Name: page.Title, Location: page.URL, Kind: domain.SourceKindWeb}},
	}, nil
}

// Close releases the extractor's network resources.
func (s *PageExtractionService) Close() error {
	return s.extractor.Close()
}
