package driven

import (
	"context"

	"github.com/custodia-labs/parley/internal/core/domain"
)

// VectorStore is the append-only knowledge base: four index-aligned
// collections (ids, embeddings, documents, metadatas) persisted as one blob
// and searched by exact cosine similarity.
type VectorStore interface {
	// Store appends a batch and persists the whole store.
	// Re-storing an id creates a duplicate record.
	// Fails with domain.ErrIO when the write cannot complete and with
	// domain.ErrDimensionMismatch when the batch does not match the store.
	Store(ctx context.Context, batch domain.RecordBatch) error

	// Search returns up to k records by descending cosine similarity.
	// Ties keep insertion order. An empty store or k <= 0 yields no results.
	// Fails with domain.ErrDimensionMismatch for a wrongly sized query.
	Search(ctx context.Context, query []float32, k int) ([]domain.ScoredRecord, error)

	// Clear atomically resets the store to empty and persists it.
	Clear(ctx context.Context) error

	// Stats summarises the stored records. It never fails.
	Stats() domain.KnowledgeStats

	// Dimension returns the fixed embedding dimension, or 0 while empty.
	Dimension() int

	// Close releases resources.
	Close() error
}
