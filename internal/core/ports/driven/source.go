package driven

import (
	"context"

	"github.com/custodia-labs/parley/internal/core/domain"
)

// DocumentSource turns files on disk into chunked documents.
// Chunking policy belongs to the source, not the core.
type DocumentSource interface {
	// Load reads, normalises and chunks every supported file under paths.
	// Directories are walked. Per-file failures are returned alongside the
	// documents that loaded.
	Load(ctx context.Context, paths []string) ([]domain.IngestDocument, []error)
}
