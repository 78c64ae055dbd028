package domain

import (
	"errors"
	"fmt"
	"strconv"
)

// Metadata keys stored with every vector record.
const (
	MetaFileName   = "file_name"
	MetaFilePath   = "file_path"
	MetaChunkIndex = "chunk_index"
)

// VectorRecord is one stored embedding tied 1:1 to a Chunk by id.
type VectorRecord struct {
	// ID matches the chunk id.
	ID string

	// Embedding is the vector; its dimension is fixed per store.
	Embedding []float32

	// Document is the chunk text.
	Document string

	// Metadata holds file_name, file_path and chunk_index.
	Metadata map[string]string
}

// ChunkMetadata returns the metadata map for a chunk.
func ChunkMetadata(c Chunk) map[string]string {
	return map[string]string{
		MetaFileName:   c.SourceFileName,
		MetaFilePath:   c.SourceFilePath,
		MetaChunkIndex: strconv.Itoa(c.ChunkIndex),
	}
}

// RecordBatch holds four index-aligned collections: entry i of each
// slice describes the same logical record.
type RecordBatch struct {
	IDs        []string
	Embeddings [][]float32
	Documents  []string
	Metadatas  []map[string]string
}

// Append adds one record to every collection.
func (b *RecordBatch) Append(r VectorRecord) {
	b.IDs = append(b.IDs, r.ID)
	b.Embeddings = append(b.Embeddings, r.Embedding)
	b.Documents = append(b.Documents, r.Document)
	b.Metadatas = append(b.Metadatas, r.Metadata)
}

// Len returns the number of records, or -1 if the collections disagree.
func (b RecordBatch) Len() int {
	n := len(b.IDs)
	if len(b.Embeddings) != n || len(b.Documents) != n || len(b.Metadatas) != n {
		return -1
	}
	return n
}

// Validate checks alignment and that every embedding has dimension dim.
// A dim of 0 accepts the first embedding's dimension.
// Returns the batch dimension (0 for an empty batch).
func (b RecordBatch) Validate(dim int) (int, error) {
	if b.Len() < 0 {
		return 0, fmt.Errorf("%w: unaligned batch (ids=%d embeddings=%d documents=%d metadatas=%d)",
			ErrInvalidInput, len(b.IDs), len(b.Embeddings), len(b.Documents), len(b.Metadatas))
	}
	for i, e := range b.Embeddings {
		if len(e) == 0 {
			return 0, fmt.Errorf("%w: record %q has an empty embedding", ErrInvalidInput, b.IDs[i])
		}
		if dim == 0 {
			dim = len(e)
			continue
		}
		if len(e) != dim {
			return 0, fmt.Errorf("record %q has %d dimensions, expected %d: %w",
				b.IDs[i], len(e), dim, ErrDimensionMismatch)
		}
	}
	return dim, nil
}

// Record returns the i-th record. The caller guarantees i is in range.
func (b RecordBatch) Record(i int) VectorRecord {
	return VectorRecord{
		ID:        b.IDs[i],
		Embedding: b.Embeddings[i],
		Document:  b.Documents[i],
		Metadata:  b.Metadatas[i],
	}
}

// ScoredRecord is a search hit.
type ScoredRecord struct {
	// Record is the matched record.
	Record VectorRecord

	// Similarity is the cosine similarity to the query, in [-1, 1].
	Similarity float64
}

// FileStats describes one ingested file.
type FileStats struct {
	// Path is the file location recorded at ingestion.
	Path string `json:"path"`

	// ChunkCount is the number of records from this file.
	ChunkCount int `json:"chunk_count"`
}

// KnowledgeStats summarises the knowledge base.
type KnowledgeStats struct {
	// TotalDocuments is the number of stored records.
	TotalDocuments int `json:"total_documents"`

	// TotalEmbeddings equals TotalDocuments while the store is aligned.
	TotalEmbeddings int `json:"total_embeddings"`

	// UniqueFiles is the number of distinct file names.
	UniqueFiles int `json:"unique_files"`

	// Files groups records by file name.
	Files map[string]FileStats `json:"files"`
}

// SourceKind distinguishes knowledge-base files from web pages.
type SourceKind string

// Source kinds.
const (
	SourceKindFile SourceKind = "file"
	SourceKindWeb  SourceKind = "web"
)

// SourceRef is one attribution attached to an answer.
type SourceRef struct {
	// Name is the file name or page title.
	Name string `json:"name"`

	// Location is the file path or URL.
	Location string `json:"location"`

	// Kind tells files and web pages apart.
	Kind SourceKind `json:"kind"`
}

// IngestReport is the outcome of one ingestion batch.
type IngestReport struct {
	// Ingested counts documents stored successfully.
	Ingested int

	// Chunks counts records stored across all documents.
	Chunks int

	// Skipped counts documents with no usable chunks.
	Skipped int

	// Failures maps a source id to the error that skipped it.
	Failures map[string]error

	// Pending lists the documents never attempted because ingestion
	// stopped early, by path or by id when the path is unknown.
	Pending []string
}

// Err joins the per-document failures, or returns nil.
func (r IngestReport) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for id, err := range r.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", id, err))
	}
	return errors.Join(errs...)
}
