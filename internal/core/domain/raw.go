package domain

import (
	"path/filepath"
	"strings"
)

// RawDocument is the unparsed content of a source document.
// It is the document source's output before normalisation.
type RawDocument struct {
	// Source identifies the document.
	Source SourceDocument

	// Content is the raw bytes.
	Content []byte
}

// MIMEType returns the content type used to select a normaliser.
func (r *RawDocument) MIMEType() string {
	return r.Source.MIMEKind.String()
}

// URI returns the document location.
func (r *RawDocument) URI() string {
	return r.Source.Path
}

// FallbackTitle is the title used when the content names none:
// "/notes/release_notes-2024.txt" becomes "release notes 2024".
func (r *RawDocument) FallbackTitle() string {
	name := filepath.Base(r.Source.Path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.Join(strings.FieldsFunc(name, func(c rune) bool {
		return c == '_' || c == '-'
	}), " ")
}
