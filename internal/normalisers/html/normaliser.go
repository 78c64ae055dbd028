package html

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser extracts the readable text of an HTML page.
type Normaliser struct{}

// New creates an HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the HTML MIME types.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{domain.MIMEKindHTML.String(), "application/xhtml+xml"}
}

// Priority beats the plain text fallback.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise keeps the text of <main> when the page has one and the whole
// body otherwise, one line per block element.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing html: %v", domain.ErrInvalidInput, err)
	}

	title := pageTitle(doc)
	if title == "" {
		title = raw.FallbackTitle()
	}

	doc.Find("head, script, style, noscript, svg, template, iframe").Remove()
	root := doc.Find("main").First()
	if root.Length() == 0 {
		root = doc.Selection
	}

	return &driven.NormaliseResult{Title: title, Content: blockText(root)}, nil
}

// pageTitle tries <title>, then og:title, then the first <h1>.
func pageTitle(doc *goquery.Document) string {
	if t := collapse(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if t, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && collapse(t) != "" {
		return collapse(t)
	}
	return collapse(doc.Find("h1").First().Text())
}

// collapse joins whitespace runs into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// layout says how an element breaks the surrounding text.
type layout int

const (
	inline layout = iota
	block
	cell
)

var layouts = map[string]layout{
	"p": block, "div": block, "br": block, "hr": block, "li": block, "tr": block,
	"h1": block, "h2": block, "h3": block, "h4": block, "h5": block, "h6": block,
	"blockquote": block, "pre": block, "table": block, "section": block,
	"article": block, "header": block, "footer": block, "ul": block, "ol": block,
	"dt": block, "dd": block, "figcaption": block, "main": block, "nav": block,
	"td": cell, "th": cell,
}

// blockText renders sel with one line per block element and table cells
// separated by a space. Blank lines are dropped.
func blockText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			name := goquery.NodeName(c)
			switch {
			case name == "#text":
				b.WriteString(c.Text())
			case name == "#comment":
			case name == "img":
				if alt, ok := c.Attr("alt"); ok && strings.TrimSpace(alt) != "" {
					b.WriteString(" " + alt + " ")
				}
			case layouts[name] == block:
				b.WriteByte('\n')
				walk(c)
				b.WriteByte('\n')
			case layouts[name] == cell:
				walk(c)
				b.WriteByte(' ')
			default:
				walk(c)
			}
		})
	}
	walk(sel)

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = collapse(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
