package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
)

// --- Stub implementations of driven ports ---

// stubEmbedder returns fixed vectors per text.
type stubEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	failOn  map[string]error
	err     error
	calls   int
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if err, ok := e.failOn[text]; ok {
		return nil, err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *stubEmbedder) Dimensions() int              { return 3 }
func (e *stubEmbedder) ModelName() string            { return "stub-embed" }
func (e *stubEmbedder) Ping(_ context.Context) error { return nil }
func (e *stubEmbedder) Close() error                 { return nil }

// stubStore is an in-memory VectorStore that records batches.
type stubStore struct {
	batches  []domain.RecordBatch
	hits     []domain.ScoredRecord
	stats    domain.KnowledgeStats
	storeErr error
	cleared  bool
	query    []float32
}

func (s *stubStore) Store(_ context.Context, batch domain.RecordBatch) error {
	if s.storeErr != nil {
		return s.storeErr
	}
	s.batches = append(s.batches, batch)
	return nil
}

func (s *stubStore) Search(_ context.Context, query []float32, k int) ([]domain.ScoredRecord, error) {
	s.query = query
	if k < len(s.hits) {
		return s.hits[:k], nil
	}
	return s.hits, nil
}

func (s *stubStore) Clear(_ context.Context) error {
	s.cleared = true
	s.batches = nil
	return nil
}

func (s *stubStore) Stats() domain.KnowledgeStats { return s.stats }
func (s *stubStore) Dimension() int               { return 3 }
func (s *stubStore) Close() error                 { return nil }

// stubSource returns fixed documents and load errors.
type stubSource struct {
	docs  []domain.IngestDocument
	errs  []error
	paths []string
}

func (s *stubSource) Load(_ context.Context, paths []string) ([]domain.IngestDocument, []error) {
	s.paths = paths
	docs := make([]domain.IngestDocument, len(s.docs))
	copy(docs, s.docs)
	return docs, s.errs
}

// stubLLM answers through a function and records every request.
type stubLLM struct {
	mu       sync.Mutex
	respond  func(messages []driven.ChatMessage) (string, error)
	requests [][]driven.ChatMessage
}

func (l *stubLLM) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	l.mu.Lock()
	l.requests = append(l.requests, messages)
	l.mu.Unlock()
	if l.respond == nil {
		return "ok", nil
	}
	return l.respond(messages)
}

func (l *stubLLM) ModelName() string            { return "stub-llm" }
func (l *stubLLM) Ping(_ context.Context) error { return nil }
func (l *stubLLM) Close() error                 { return nil }

func (l *stubLLM) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}

func (l *stubLLM) last() []driven.ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.requests) == 0 {
		return nil
	}
	return l.requests[len(l.requests)-1]
}

// isRouterRequest reports whether messages carry the routing prompt.
func isRouterRequest(messages []driven.ChatMessage) bool {
	return len(messages) > 0 && strings.Contains(messages[0].Content, "query router")
}

// newRoutingLLM classifies every query as decision and otherwise replies
// with reply.
func newRoutingLLM(decision, reply string) *stubLLM {
	return &stubLLM{respond: func(messages []driven.ChatMessage) (string, error) {
		if isRouterRequest(messages) {
			return decision, nil
		}
		return reply, nil
	}}
}

// stubEngine returns fixed search results.
type stubEngine struct {
	name    string
	results []domain.WebResult
	err     error
	queries []string
}

func (e *stubEngine) Name() string { return e.name }

func (e *stubEngine) Search(_ context.Context, query string, limit int) ([]domain.WebResult, error) {
	e.queries = append(e.queries, query)
	if e.err != nil {
		return nil, e.err
	}
	if limit < len(e.results) {
		return e.results[:limit], nil
	}
	return e.results, nil
}

// stubExtractor returns pages keyed by URL.
type stubExtractor struct {
	mu     sync.Mutex
	pages  map[string]domain.PageContent
	urls   []string
	closed bool
}

func (x *stubExtractor) Extract(_ context.Context, url string, maxChars int) domain.PageContent {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.urls = append(x.urls, url)
	page, ok := x.pages[url]
	if !ok {
		return domain.FailedPage(url, errors.New("404 Not Found"))
	}
	if r := []rune(page.Content); len(r) > maxChars {
		page.Content = string(r[:maxChars])
	}
	page.Length = len([]rune(page.Content))
	return page
}

func (x *stubExtractor) Close() error {
	x.closed = true
	return nil
}

// stubTranscripts keeps entries in memory.
type stubTranscripts struct {
	entries []domain.TranscriptEntry
	err     error
}

func (s *stubTranscripts) Record(_ context.Context, entry domain.TranscriptEntry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubTranscripts) ListSession(_ context.Context, sessionID string) ([]domain.TranscriptEntry, error) {
	var out []domain.TranscriptEntry
	for _, e := range s.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubTranscripts) ListSessions(_ context.Context, limit int) ([]domain.SessionSummary, error) {
	counts := make(map[string]int)
	var order []string
	for i := len(s.entries) - 1; i >= 0; i-- {
		id := s.entries[i].SessionID
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}
	var out []domain.SessionSummary
	for _, id := range order {
		if len(out) == limit {
			break
		}
		out = append(out, domain.SessionSummary{ID: id, Turns: counts[id]})
	}
	return out, nil
}

func (s *stubTranscripts) Close() error { return nil }

// stubPromptStore serves prompts from a map.
type stubPromptStore struct {
	prompts map[string]string
}

func (p *stubPromptStore) Load(name string) (string, error) {
	if prompt, ok := p.prompts[name]; ok {
		return prompt, nil
	}
	return "", domain.ErrNotFound
}

func (p *stubPromptStore) Reload() {}
