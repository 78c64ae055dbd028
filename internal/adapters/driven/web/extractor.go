package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
	"github.com/custodia-labs/parley/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.PageExtractor = (*Extractor)(nil)

// DefaultMaxChars bounds extracted text when the caller passes no limit.
const DefaultMaxChars = 5000

// DefaultCacheSize is the number of extracted pages kept in memory.
const DefaultCacheSize = 128

// contentSelectors are tried in order; the first match is the content region.
var contentSelectors = []string{
	"main", "article", ".content", "#content", ".post-content", ".article-content", "body",
}

// Config holds configuration for the page extractor.
type Config struct {
	// Timeout bounds each fetch (default: 30s).
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// CacheSize is the number of pages cached. Zero uses the default and a
	// negative value disables caching.
	CacheSize int
}

// Extractor fetches a page and returns the readable text of its main region.
type Extractor struct {
	client    *http.Client
	userAgent string
	cache     *lru.Cache[string, domain.PageContent]
}

// NewExtractor creates a page extractor.
func NewExtractor(cfg Config) *Extractor {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = DefaultCacheSize
	}

	e := &Extractor{
		client:    NewClient(cfg.Timeout),
		userAgent: cfg.UserAgent,
	}
	if cfg.CacheSize > 0 {
		// Only errors for a non-positive size.
		e.cache, _ = lru.New[string, domain.PageContent](cfg.CacheSize)
	}
	return e
}

// Extract never returns an error: failures come back as a page with
// Title "Error" and Length 0.
func (e *Extractor) Extract(ctx context.Context, rawURL string, maxChars int) domain.PageContent {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	page, ok := e.lookup(rawURL)
	if !ok {
		doc, err := FetchDocument(ctx, e.client, rawURL, e.userAgent)
		if err != nil {
			logger.Warn("extract %s: %v", rawURL, err)
			return domain.FailedPage(rawURL, err)
		}
		page = ExtractDocument(doc, rawURL)
		if e.cache != nil {
			e.cache.Add(rawURL, page)
		}
	} else {
		logger.Debug("extract %s: cache hit", rawURL)
	}

	page.Content = Truncate(page.Content, maxChars)
	page.Length = len([]rune(page.Content))
	return page
}

func (e *Extractor) lookup(rawURL string) (domain.PageContent, bool) {
	if e.cache == nil {
		return domain.PageContent{}, false
	}
	return e.cache.Get(rawURL)
}

// ExtractDocument returns the untruncated readable text of doc. Scripts and
// styles are dropped and whitespace collapsed.
func ExtractDocument(doc *goquery.Document, rawURL string) domain.PageContent {
	doc.Find("script, style").Remove()

	title := CollapseWhitespace(doc.Find("title").First().Text())
	if title == "" {
		title = "No title"
	}

	var content string
	for _, selector := range contentSelectors {
		region := doc.Find(selector).First()
		if region.Length() > 0 {
			content = VisibleText(region)
			break
		}
	}
	if content == "" {
		content = VisibleText(doc.Selection)
	}

	return domain.PageContent{
		Title:   title,
		Content: content,
		URL:     rawURL,
		Length:  len([]rune(content)),
	}
}

// VisibleText concatenates the text nodes under sel, separated by spaces,
// with whitespace collapsed.
func VisibleText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "#text":
				b.WriteString(c.Text())
				b.WriteByte(' ')
			case "#comment", "script", "style", "noscript":
			default:
				walk(c)
			}
		})
	}
	walk(sel)
	return CollapseWhitespace(b.String())
}

// Close releases idle connections and drops the cache.
func (e *Extractor) Close() error {
	e.client.CloseIdleConnections()
	if e.cache != nil {
		e.cache.Purge()
	}
	return nil
}
