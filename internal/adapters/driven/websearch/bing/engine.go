// Package bing searches the web by scraping Bing result pages.
package bing

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/parley/internal/adapters/driven/web"
	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.SearchEngine = (*Engine)(nil)

// Name is the engine name used in settings and results.
const Name = "bing"

// DefaultBaseURL is Bing's search page.
const DefaultBaseURL = "https://www.bing.com/search"

// Config holds configuration for the Bing engine.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Engine scrapes Bing result pages.
type Engine struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

// New creates a Bing engine.
func New(cfg Config) *Engine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Engine{
		client:    web.NewClient(cfg.Timeout),
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
	}
}

// Name returns "bing".
func (e *Engine) Name() string {
	return Name
}

// Search returns up to limit results in page order.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]domain.WebResult, error) {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("count", strconv.Itoa(limit))
	}

	doc, err := web.FetchDocument(ctx, e.client, e.baseURL+"?"+params.Encode(), e.userAgent)
	if err != nil {
		return nil, err
	}
	return ParseResults(doc, limit), nil
}

// ParseResults reads li.b_algo blocks from a results page.
func ParseResults(doc *goquery.Document, limit int) []domain.WebResult {
	var results []domain.WebResult
	doc.Find("li.b_algo").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if limit > 0 && len(results) >= limit {
			return false
		}
		link := s.Find("h2 a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return true
		}

		snippet := s.Find("p").First()
		if snippet.Length() == 0 {
			snippet = s.Find("div.b_caption").First()
		}

		results = append(results, domain.WebResult{
			Title:   web.CollapseWhitespace(link.Text()),
			URL:     href,
			Snippet: web.CollapseWhitespace(snippet.Text()),
			Engine:  Name,
		})
		return true
	})
	return results
}

// Close releases idle connections.
func (e *Engine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
