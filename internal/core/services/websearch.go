package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
	"github.com/custodia-labs/parley/internal/logger"
)

// Web search defaults.
const (
	DefaultNumResults = 5
	DefaultNumExtract = 3
	DefaultPageChars  = 5000

	// sourceChars bounds each page's text in the summary prompt.
	sourceChars = 2000
)

// NoSearchResultsAnswer is returned instead of calling the model when the
// engine found nothing.
const NoSearchResultsAnswer = "Error: No search results found"

// WebSearchConfig configures the web search service.
type WebSearchConfig struct {
	// Engine selects a registered engine by name. Unknown names use DuckDuckGo.
	Engine string

	// NumResults is the default number of results requested.
	NumResults int

	// NumExtract is the default number of result pages read.
	NumExtract int

	// PageChars bounds the text extracted from each page.
	PageChars int
}

// WebSearchService answers queries from search-engine results.
type WebSearchService struct {
	prompts

	engine    driven.SearchEngine
	extractor driven.PageExtractor
	llm       driven.LLMService
	cfg       WebSearchConfig
}

// NewWebSearchService creates a web search service over the given engines.
func NewWebSearchService(
	engines []driven.SearchEngine,
	extractor driven.PageExtractor,
	llm driven.LLMService,
	cfg WebSearchConfig,
) *WebSearchService {
	if cfg.NumResults <= 0 {
		cfg.NumResults = DefaultNumResults
	}
	if cfg.NumExtract <= 0 {
		cfg.NumExtract = DefaultNumExtract
	}
	if cfg.PageChars <= 0 {
		cfg.PageChars = DefaultPageChars
	}

	return &WebSearchService{
		engine:    selectEngine(engines, cfg.Engine),
		extractor: extractor,
		llm:       llm,
		cfg:       cfg,
	}
}

// selectEngine finds the named engine, falling back to DuckDuckGo and then
// to the first engine given.
func selectEngine(engines []driven.SearchEngine, name string) driven.SearchEngine {
	byName := make(map[string]driven.SearchEngine, len(engines))
	for _, e := range engines {
		byName[strings.ToLower(e.Name())] = e
	}

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = domain.SearchEngineDuckDuckGo
	}
	if e, ok := byName[name]; ok {
		return e
	}

	logger.Warn("Unsupported search engine %q, using %s", name, domain.SearchEngineDuckDuckGo)
	if e, ok := byName[domain.SearchEngineDuckDuckGo]; ok {
		return e
	}
	if len(engines) > 0 {
		return engines[0]
	}
	return nil
}

// EngineName returns the selected engine's name, or "" when none is set.
func (s *WebSearchService) EngineName() string {
	if s.engine == nil {
		return ""
	}
	return s.engine.Name()
}

// Search returns at most numResults hits in engine-ranked order.
// Engine failures are logged and yield no results.
func (s *WebSearchService) Search(ctx context.Context, query string, numResults int) []domain.WebResult {
	if numResults <= 0 {
		numResults = s.cfg.NumResults
	}
	if s.engine == nil {
		logger.Warn("No search engine configured")
		return nil
	}

	results, err := s.engine.Search(ctx, query, numResults)
	if err != nil {
		logger.Warn("Error searching %s: %v", s.engine.Name(), err)
		return nil
	}
	if len(results) > numResults {
		results = results[:numResults]
	}
	logger.Debug("%s returned %d results", s.engine.Name(), len(results))
	return results
}

// ExtractAndSummarize searches, reads the first numExtract result pages and
// asks the model for a synthesis citing them. With no search results it
// returns NoSearchResultsAnswer without calling the model.
func (s *WebSearchService) ExtractAndSummarize(
	ctx context.Context, query string, numResults, numExtract int,
) (domain.GroundedAnswer, error) {
	if numExtract <= 0 {
		numExtract = s.cfg.NumExtract
	}

	if s.llm == nil {
		return domain.GroundedAnswer{}, fmt.Errorf("internet answer: %w", domain.ErrLLMUnavailable)
	}

	results := s.Search(ctx, query, numResults)
	if len(results) == 0 {
		return domain.GroundedAnswer{Text: NoSearchResultsAnswer}, nil
	}

	if numExtract > len(results) {
		numExtract = len(results)
	}
	pages := s.extractPages(ctx, results[:numExtract])

	user := fmt.Sprintf("Sources Internet:\n%s\n\nQuestion: %s", formatPages(pages), query)
	messages := buildMessages(s.load(driven.PromptInternetSystem), nil, 0, user)

	text, err := s.llm.Chat(ctx, messages, driven.ChatOptions{})
	if err != nil {
		return domain.GroundedAnswer{}, fmt.Errorf("internet chat: %w", err)
	}

	var sources []domain.SourceRef
	for _, page := range pages {
		if page.Failed() {
			continue
		}
		sources = append(sources, domain.SourceRef{Name: page.Title, Location: page.URL, Kind: domain.SourceKindWeb})
	}
	return domain.GroundedAnswer{Text: text, Sources: sources}, nil
}

// extractPages fetches the result pages concurrently, keeping rank order.
func (s *WebSearchService) extractPages(ctx context.Context, results []domain.WebResult) []domain.PageContent {
	pages := make([]domain.PageContent, len(results))
	if s.extractor == nil {
		for i, r := range results {
			pages[i] = domain.FailedPage(r.URL, fmt.Errorf("%w: no page extractor", domain.ErrInvalidInput))
		}
		return pages
	}

	var g errgroup.Group
	for i, r := range results {
		g.Go(func() error {
			pages[i] = s.extractor.Extract(ctx, r.URL, s.cfg.PageChars)
			return nil
		})
	}
	_ = g.Wait()
	return pages
}

// formatPages renders extracted pages as numbered sources.
func formatPages(pages []domain.PageContent) string {
	parts := make([]string, len(pages))
	for i, page := range pages {
		parts[i] = fmt.Sprintf("\nSource %d: %s\nURL: %s\nContent: %s...\n",
			i+1, page.Title, page.URL, truncateRunes(page.Content, sourceChars))
	}
	return strings.Join(parts, "\n")
}

// truncateRunes returns at most n runes of s.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
