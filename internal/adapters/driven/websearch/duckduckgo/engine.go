// Package duckduckgo searches the web through DuckDuckGo's HTML endpoint.
package duckduckgo

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/parley/internal/adapters/driven/web"
	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.SearchEngine = (*Engine)(nil)

// Name is the engine name used in settings and results.
const Name = "duckduckgo"

// DefaultBaseURL is the JavaScript-free results page.
const DefaultBaseURL = "https://html.duckduckgo.com/html/"

// Config holds configuration for the DuckDuckGo engine.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Engine scrapes DuckDuckGo result pages.
type Engine struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

// New creates a DuckDuckGo engine.
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

// Name returns "duckduckgo".
func (e *Engine) Name() string {
	return Name
}

// Search returns up to limit results in page order.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]domain.WebResult, error) {
	doc, err := web.FetchDocument(ctx, e.client, e.baseURL+"?q="+url.QueryEscape(query), e.userAgent)
	if err != nil {
		return nil, err
	}
	return ParseResults(doc, limit), nil
}

// ParseResults reads div.result blocks from a results page.
func ParseResults(doc *goquery.Document, limit int) []domain.WebResult {
	var results []domain.WebResult
	doc.Find("div.result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if limit > 0 && len(results) >= limit {
			return false
		}
		link := s.Find("a.result__a").First()
		if link.Length() == 0 {
			return true
		}
		href, _ := link.Attr("href")
		target := resolveHref(href)
		if target == "" {
			return true
		}
		results = append(results, domain.WebResult{
			Title:   web.CollapseWhitespace(link.Text()),
			URL:     target,
			Snippet: web.CollapseWhitespace(s.Find("a.result__snippet").First().Text()),
			Engine:  Name,
		})
		return true
	})
	return results
}

// resolveHref unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveHref(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

// Close releases idle connections.
func (e *Engine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
