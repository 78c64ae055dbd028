// Package markdown turns Markdown files into searchable plain text.
package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser strips Markdown syntax but keeps the words, including the
// contents of code blocks so snippets stay searchable.
type Normaliser struct{}

// New creates a Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the Markdown MIME types.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{domain.MIMEKindMarkdown.String(), "text/x-markdown"}
}

// Priority beats the plain text fallback.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise drops front matter and markup. The title is, in order, a
// front matter "title", the first level one heading, or the file name.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")
	meta, body := splitFrontMatter(text)

	title := meta["title"]
	if title == "" {
		title = firstHeading(body)
	}
	if title == "" {
		title = raw.FallbackTitle()
	}

	return &driven.NormaliseResult{Title: title, Content: stripMarkdown(body)}, nil
}

// splitFrontMatter separates a leading "---" delimited block from the body
// and reads its flat "key: value" lines. Anything nested is ignored.
func splitFrontMatter(text string) (map[string]string, string) {
	if !strings.HasPrefix(text, "---\n") {
		return nil, text
	}
	rest := text[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, text
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(rest[:end], "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.HasPrefix(line, " ") {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if key = strings.TrimSpace(key); key != "" && value != "" {
			meta[strings.ToLower(key)] = value
		}
	}

	body := rest[end+len("\n---"):]
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}
	if len(meta) == 0 {
		meta = nil
	}
	return meta, body
}

// firstHeading finds an ATX ("# Title") or setext ("Title" over "===")
// level one heading outside code fences.
func firstHeading(body string) string {
	lines := strings.Split(body, "\n")
	inFence := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if strings.HasPrefix(trimmed, "# ") {
			return closingHashes.ReplaceAllString(strings.TrimSpace(trimmed[1:]), "")
		}
		if trimmed != "" && i+1 < len(lines) && setextUnderline.MatchString(lines[i+1]) {
			return trimmed
		}
	}
	return ""
}

var (
	setextUnderline = regexp.MustCompile(`^[ \t]*=+[ \t]*$`)
	closingHashes   = regexp.MustCompile(`[ \t]+#+$`)
)

// rewrite is one markup rule. Order matters: images go before links and
// horizontal rules before list markers.
type rewrite struct {
	pattern *regexp.Regexp
	with    string
}

var rewrites = []rewrite{
	{regexp.MustCompile(`(?s)<!--.*?-->`), ""},
	{regexp.MustCompile("(?m)^[ \\t]*(```|~~~)[^\\n]*\\n?"), ""},
	{regexp.MustCompile("`([^`]+)`"), "$1"},
	{regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`), ""},
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`), "$1"},
	{regexp.MustCompile(`(?m)^\[[^\]]+\]:[ \t]+\S+.*$`), ""},
	{regexp.MustCompile(`(?m)^#{1,6}[ \t]+(.*?)(?:[ \t]+#+)?[ \t]*$`), "$1"},
	{regexp.MustCompile(`(?m)^[ \t]*([=-]{3,}|[*_]{3,})[ \t]*$`), ""},
	{regexp.MustCompile(`(?m)^>[ \t]?`), ""},
	{regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+(\[[ xX]\][ \t]+)?`), ""},
	{regexp.MustCompile(`(?m)^[ \t]*\d+[.)][ \t]+`), ""},
	{regexp.MustCompile(`(?m)^\|?([ \t]*:?-+:?[ \t]*\|)+[ \t]*(:?-+:?)?[ \t]*$`), ""},
	{regexp.MustCompile(`(?m)^\|[ \t]*|[ \t]*\|[ \t]*$`), ""},
	{regexp.MustCompile(`[ \t]*\|[ \t]*`), "  "},
	{regexp.MustCompile(`(\*{1,3}|_{2,3}|~~)([^*_~\n]+)(\*{1,3}|_{2,3}|~~)`), "$2"},
	{regexp.MustCompile(`\n{3,}`), "\n\n"},
}

// stripMarkdown removes Markdown markup, leaving readable text.
func stripMarkdown(content string) string {
	for _, r := range rewrites {
		content = r.pattern.ReplaceAllString(content, r.with)
	}
	return strings.TrimSpace(content)
}
