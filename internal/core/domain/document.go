package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MIMEKind is the coarse document format used to pick a normaliser.
type MIMEKind string

// Supported document kinds.
const (
	MIMEKindText     MIMEKind = "text/plain"
	MIMEKindMarkdown MIMEKind = "text/markdown"
	MIMEKindHTML     MIMEKind = "text/html"
	MIMEKindPDF      MIMEKind = "application/pdf"
	MIMEKindDOCX     MIMEKind = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEKindUnknown  MIMEKind = ""
)

var extensionKinds = map[string]MIMEKind{
	".txt":      MIMEKindText,
	".text":     MIMEKindText,
	".md":       MIMEKindMarkdown,
	".markdown": MIMEKindMarkdown,
	".html":     MIMEKindHTML,
	".htm":      MIMEKindHTML,
	".pdf":      MIMEKindPDF,
	".docx":     MIMEKindDOCX,
}

// MIMEKindFromPath detects the document kind from a file extension.
// Returns MIMEKindUnknown for unsupported extensions.
func MIMEKindFromPath(path string) MIMEKind {
	return extensionKinds[strings.ToLower(filepath.Ext(path))]
}

// IsSupported returns true if a normaliser exists for this kind.
func (k MIMEKind) IsSupported() bool {
	return k != MIMEKindUnknown
}

// String returns the MIME type string.
func (k MIMEKind) String() string {
	return string(k)
}

// SourceDocument identifies a file offered for ingestion.
// Every ingestion entry point (attachments, directory batches, watch mode)
// produces the same immutable value.
type SourceDocument struct {
	// ID is the stable identifier; chunk ids are derived from it.
	ID string

	// Name is the display name, usually the file's base name.
	Name string

	// Path is the location on disk.
	Path string

	// MIMEKind is the detected document format.
	MIMEKind MIMEKind
}

// NewSourceDocument builds a SourceDocument from a file path.
// The id is the file name without its extension.
func NewSourceDocument(path string) SourceDocument {
	name := filepath.Base(path)
	return SourceDocument{
		ID:       strings.TrimSuffix(name, filepath.Ext(name)),
		Name:     name,
		Path:     path,
		MIMEKind: MIMEKindFromPath(path),
	}
}

// Chunk is an immutable unit of ingested text.
type Chunk struct {
	// ID is derived from the source document id and the ordinal.
	ID string

	// Text is the chunk content. Never empty.
	Text string

	// SourceFileName is the name of the originating file.
	SourceFileName string

	// SourceFilePath is the location of the originating file.
	SourceFilePath string

	// ChunkIndex is the position within the source document, from 0.
	ChunkIndex int
}

// ChunkID builds the record id for the i-th chunk of a source.
func ChunkID(sourceID string, index int) string {
	return fmt.Sprintf("%s_%d", sourceID, index)
}

// IngestDocument is one parsed document ready for the ingestor:
// its identity plus its ordered chunk texts.
type IngestDocument struct {
	// Source identifies the document.
	Source SourceDocument

	// Chunks holds the chunk texts in document order.
	Chunks []string
}

// BuildChunks materialises the chunk values for the document.
// Blank chunk texts are dropped; ordinals follow the original positions.
func (d IngestDocument) BuildChunks() []Chunk {
	chunks := make([]Chunk, 0, len(d.Chunks))
	for i, text := range d.Chunks {
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			ID:             ChunkID(d.Source.ID, i),
			Text:           text,
			SourceFileName: d.Source.Name,
			SourceFilePath: d.Source.Path,
			ChunkIndex:     i,
		})
	}
	return chunks
}

// LoadError reports a file that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
