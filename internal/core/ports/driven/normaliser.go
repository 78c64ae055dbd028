package driven

import (
	"context"

	"github.com/custodia-labs/parley/internal/core/domain"
)

// Normaliser turns one file format into plain text.
type Normaliser interface {
	SupportedMIMETypes() []string

	// Priority breaks ties when several normalisers accept a MIME type.
	// Format-specific ones use 50 to 89; catch-alls use 1 to 9.
	Priority() int

	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult is a document's title and full text before chunking.
type NormaliseResult struct {
	Title   string
	Content string
}

// NormaliserRegistry dispatches a document to the best Normaliser for its
// MIME type.
type NormaliserRegistry interface {
	// Normalise returns domain.ErrUnsupportedType when nothing matches.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
	Register(normaliser Normaliser)
	SupportedMIMETypes() []string
}
