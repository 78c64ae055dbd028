package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
	"github.com/custodia-labs/parley/internal/postprocessors/chunker"
)

// ChunkerName is the registry name of the word window chunker.
const ChunkerName = "chunker"

// DefaultProcessors is the standard ingestion pipeline, in order.
var DefaultProcessors = []string{ChunkerName}

// RegisterDefaults registers every built-in processor.
func RegisterDefaults(r *Registry) error {
	return r.Register(ChunkerName, buildChunker)
}

// DefaultPipeline builds the standard ingestion pipeline with chunks of
// chunkWords words. Zero keeps the chunker's default window.
func DefaultPipeline(chunkWords int) (*Pipeline, error) {
	r := NewRegistry()
	if err := RegisterDefaults(r); err != nil {
		return nil, err
	}
	return r.Pipeline(domain.KnowledgeSettings{ChunkWords: chunkWords}, DefaultProcessors...)
}

func buildChunker(cfg domain.KnowledgeSettings) (driven.PostProcessor, error) {
	if cfg.ChunkWords < 0 {
		return nil, fmt.Errorf("%w: chunk words must not be negative, got %d", domain.ErrInvalidInput, cfg.ChunkWords)
	}

	var opts []chunker.Option
	if cfg.ChunkWords > 0 {
		opts = append(opts, chunker.WithChunkWords(cfg.ChunkWords))
	}
	return chunker.New(opts...), nil
}
