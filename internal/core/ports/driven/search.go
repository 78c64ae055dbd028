package driven

import (
	"context"

	"github.com/custodia-labs/parley/internal/core/domain"
)

// SearchEngine issues one query to a web search engine.
type SearchEngine interface {
	// Name identifies the engine (e.g. "duckduckgo").
	Name() string

	// Search returns at most limit results in engine-ranked order.
	Search(ctx context.Context, query string, limit int) ([]domain.WebResult, error)
}

// PageExtractor fetches one URL and extracts its readable text.
// Failures are reported in-band: the returned page has Length 0 and a
// human-readable description in Content.
type PageExtractor interface {
	// Extract returns at most maxChars characters of page text.
	Extract(ctx context.Context, url string, maxChars int) domain.PageContent

	// Close releases held network resources.
	Close() error
}
