// Package plaintext reads text files as they are.
package plaintext

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

const byteOrderMark = "\uFEFF"

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Normaliser is the catch-all for text formats without their own
// normaliser.
type Normaliser struct{}

// New creates a plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes lists the text types read verbatim.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{domain.MIMEKindText.String(), "text/csv", "text/x-log"}
}

// Priority is low so format-aware normalisers win.
func (n *Normaliser) Priority() int {
	return 5
}

// Normalise repairs invalid UTF-8, drops a leading byte-order mark and
// unifies line endings. The title comes from the file name.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := string(raw.Content)
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, string(utf8.RuneError))
	}
	content = lineEndings.Replace(strings.TrimPrefix(content, byteOrderMark))

	return &driven.NormaliseResult{Title: raw.FallbackTitle(), Content: content}, nil
}
