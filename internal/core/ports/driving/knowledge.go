package driving

import (
	"context"

	"github.com/custodia-labs/parley/internal/core/domain"
)

// KnowledgeService manages the local knowledge base.
type KnowledgeService interface {
	// IngestPaths loads files and directories and stores their chunks.
	// One failing document never aborts the batch.
	IngestPaths(ctx context.Context, paths []string) (domain.IngestReport, error)

	// Ingest stores already-chunked documents.
	Ingest(ctx context.Context, docs []domain.IngestDocument) (domain.IngestReport, error)

	// SimilaritySearch embeds the query and returns the k nearest records.
	SimilaritySearch(ctx context.Context, query string, k int) ([]domain.ScoredRecord, error)

	// Stats summarises the knowledge base.
	Stats() domain.KnowledgeStats

	// Clear removes every record.
	Clear(ctx context.Context) error
}
