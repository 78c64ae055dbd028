package normalisers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
	"github.com/custodia-labs/parley/internal/logger"
	"github.com/custodia-labs/parley/internal/normalisers/docx"
	"github.com/custodia-labs/parley/internal/normalisers/html"
	"github.com/custodia-labs/parley/internal/normalisers/markdown"
	"github.com/custodia-labs/parley/internal/normalisers/pdf"
	"github.com/custodia-labs/parley/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches documents to the highest-priority normaliser that
// supports their MIME type.
type Registry struct {
	mu     sync.RWMutex
	byMIME map[string][]driven.Normaliser
}

// NewRegistry creates an empty normaliser registry.
func NewRegistry() *Registry {
	return &Registry{byMIME: make(map[string][]driven.Normaliser)}
}

// Defaults returns a registry with every built-in normaliser registered.
func Defaults() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(pdf.New())
	return r
}

// Register adds a normaliser under each MIME type it supports.
// Candidates for a type stay sorted by descending priority.
func (r *Registry) Register(normaliser driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mimeType := range normaliser.SupportedMIMETypes() {
		candidates := append(r.byMIME[mimeType], normaliser)
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Priority() > candidates[j].Priority()
		})
		r.byMIME[mimeType] = candidates
	}
}

// Normalise runs the best matching normaliser for raw.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	normaliser := r.lookup(raw.MIMEType())
	if normaliser == nil {
		return nil, fmt.Errorf("%w: no normaliser for %q", domain.ErrUnsupportedType, raw.MIMEType())
	}

	logger.Debug("normalising %s as %s", raw.URI(), raw.MIMEType())
	return normaliser.Normalise(ctx, raw)
}

// Supports reports whether any normaliser handles mimeType.
func (r *Registry) Supports(mimeType string) bool {
	return r.lookup(mimeType) != nil
}

// SupportedMIMETypes returns every registered MIME type, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byMIME))
	for mimeType := range r.byMIME {
		types = append(types, mimeType)
	}
	sort.Strings(types)
	return types
}

func (r *Registry) lookup(mimeType string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if candidates := r.byMIME[mimeType]; len(candidates) > 0 {
		return candidates[0]
	}
	return nil
}
