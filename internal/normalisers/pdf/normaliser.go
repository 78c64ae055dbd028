// Package pdf provides a Normaliser for PDF documents backed by a pure Go
// PDF reader, so no external tools are needed.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// maxTitleRunes bounds how long a first line may be to count as a title.
const maxTitleRunes = 200

// ErrNoText is returned for PDFs without an extractable text layer,
// such as scanned images.
var ErrNoText = errors.New("pdf has no extractable text")

// TextExtractor pulls plain text out of PDF bytes.
type TextExtractor func(content []byte) (string, error)

// Normaliser handles PDF documents.
type Normaliser struct {
	extract TextExtractor
}

// New creates a PDF normaliser using the built-in reader.
func New() *Normaliser {
	return &Normaliser{extract: ExtractText}
}

// NewWithExtractor creates a PDF normaliser around extract.
func NewWithExtractor(extract TextExtractor) *Normaliser {
	return &Normaliser{extract: extract}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{domain.MIMEKindPDF.String()}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the text of every page in order.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text, err := n.extract(raw.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: reading pdf: %v", domain.ErrInvalidInput, err)
	}

	content := strings.TrimSpace(text)
	if content == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, ErrNoText)
	}

	title := firstLine(content)
	if title == "" {
		title = raw.FallbackTitle()
	}
	return &driven.NormaliseResult{Title: title, Content: content}, nil
}

// ExtractText reads a PDF from memory and returns its text with pages
// separated by a blank line. Pages that fail to decode are skipped unless
// every page fails. The reader panics on some malformed files; that is
// reported as an error.
func ExtractText(content []byte) (text string, err error) {
	if len(content) == 0 {
		return "", nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	fonts := make(map[string]*pdf.Font)
	var (
		pages    []string
		firstErr error
	)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("page %d: %w", i, err)
			}
			continue
		}
		if pageText = strings.TrimSpace(pageText); pageText != "" {
			pages = append(pages, pageText)
		}
	}
	if len(pages) == 0 && firstErr != nil {
		return "", firstErr
	}
	return strings.Join(pages, "\n\n"), nil
}

// firstLine returns the first short non-empty line, or "".
func firstLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.ReplaceAll(line, "\x00", ""))
		if line != "" && utf8.RuneCountInString(line) <= maxTitleRunes {
			return line
		}
	}
	return ""
}
