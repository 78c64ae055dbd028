package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
	"github.com/custodia-labs/parley/internal/core/ports/driving"
	"github.com/custodia-labs/parley/internal/logger"
)

// Ensure KnowledgeService implements the interface.
var _ driving.KnowledgeService = (*KnowledgeService)(nil)

// KnowledgeService ingests documents into the vector store and searches it.
type KnowledgeService struct {
	store    driven.VectorStore
	embedder driven.EmbeddingService
	source   driven.DocumentSource
}

// NewKnowledgeService creates a knowledge service.
// The embedder and source may be nil; operations that need them fail
// with domain.ErrEmbeddingUnavailable and domain.ErrInvalidInput.
func NewKnowledgeService(
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	source driven.DocumentSource,
) *KnowledgeService {
	return &KnowledgeService{
		store:    store,
		embedder: embedder,
		source:   source,
	}
}

// IngestPaths loads files and directories through the document source and
// ingests every document that loaded. Load failures are reported by path.
func (s *KnowledgeService) IngestPaths(ctx context.Context, paths []string) (domain.IngestReport, error) {
	if s.source == nil {
		return newIngestReport(), fmt.Errorf("%w: no document source configured", domain.ErrInvalidInput)
	}

	logger.Section("Ingest Paths")
	docs, loadErrs := s.source.Load(ctx, paths)
	logger.Debug("Loaded %d documents, %d load errors", len(docs), len(loadErrs))

	report, err := s.Ingest(ctx, docs)
	for _, loadErr := range loadErrs {
		key := loadErr.Error()
		var le *domain.LoadError
		if errors.As(loadErr, &le) {
			key = le.Path
		}
		report.Failures[key] = loadErr
		logger.Warn("Skipping %s: %v", key, loadErr)
	}
	return report, err
}

// Ingest embeds every chunk of every document and stores one batch per
// document. A document that fails to embed is recorded and skipped.
// A store I/O failure aborts the remaining documents, which the report
// lists as pending.
func (s *KnowledgeService) Ingest(ctx context.Context, docs []domain.IngestDocument) (domain.IngestReport, error) {
	report := newIngestReport()
	if len(docs) == 0 {
		return report, nil
	}
	if s.embedder == nil {
		return report, fmt.Errorf("ingest: %w", domain.ErrEmbeddingUnavailable)
	}

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			report.Pending = pendingDocs(docs[i:])
			return report, err
		}

		chunks := doc.BuildChunks()
		if len(chunks) == 0 {
			logger.Debug("No chunks extracted from %s", doc.Source.Path)
			report.Skipped++
			continue
		}

		batch, err := s.embedChunks(ctx, chunks)
		if err != nil {
			logger.Warn("Error processing %s: %v", doc.Source.Path, err)
			report.Failures[doc.Source.ID] = err
			continue
		}

		if err := s.store.Store(ctx, batch); err != nil {
			report.Failures[doc.Source.ID] = err
			if errors.Is(err, domain.ErrIO) {
				logger.Error("Knowledge base write failed: %v", err)
				report.Pending = pendingDocs(docs[i+1:])
				return report, err
			}
			logger.Warn("Error storing %s: %v", doc.Source.Path, err)
			continue
		}

		report.Ingested++
		report.Chunks += len(chunks)
		logger.Info("Processed %s: %d chunks", doc.Source.Path, len(chunks))
	}

	return report, nil
}

func pendingDocs(docs []domain.IngestDocument) []string {
	if len(docs) == 0 {
		return nil
	}
	pending := make([]string, len(docs))
	for i, doc := range docs {
		pending[i] = doc.Source.Path
		if pending[i] == "" {
			pending[i] = doc.Source.ID
		}
	}
	return pending
}

// embedChunks builds the record batch for one document.
func (s *KnowledgeService) embedChunks(ctx context.Context, chunks []domain.Chunk) (domain.RecordBatch, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return domain.RecordBatch{}, fmt.Errorf("embed: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return domain.RecordBatch{}, fmt.Errorf("%w: %d embeddings for %d chunks",
			domain.ErrEmbeddingUnavailable, len(embeddings), len(chunks))
	}

	var batch domain.RecordBatch
	for i, c := range chunks {
		batch.Append(domain.VectorRecord{
			ID:        c.ID,
			Embedding: embeddings[i],
			Document:  c.Text,
			Metadata:  domain.ChunkMetadata(c),
		})
	}
	return batch, nil
}

// SimilaritySearch embeds the query and returns the k nearest records.
func (s *KnowledgeService) SimilaritySearch(ctx context.Context, query string, k int) ([]domain.ScoredRecord, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("similarity search: %w", domain.ErrEmbeddingUnavailable)
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.store.Search(ctx, vector, k)
}

// Stats summarises the knowledge base.
func (s *KnowledgeService) Stats() domain.KnowledgeStats {
	return s.store.Stats()
}

// Clear removes every record.
func (s *KnowledgeService) Clear(ctx context.Context) error {
	logger.Info("Clearing knowledge base")
	return s.store.Clear(ctx)
}

func newIngestReport() domain.IngestReport {
	return domain.IngestReport{Failures: make(map[string]error)}
}
