package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
	"github.com/custodia-labs/parley/internal/logger"
)

// Verify interface compliance.
var _ driven.VectorStore = (*Store)(nil)

// DefaultFileName is the knowledge-base file created inside a data directory.
const DefaultFileName = "knowledge_base.json"

// file is the on-disk shape: four index-aligned collections.
type file struct {
	IDs        []string            `json:"ids"`
	Documents  []string            `json:"documents"`
	Embeddings [][]float32         `json:"embeddings"`
	Metadatas  []map[string]string `json:"metadatas"`
}

// snapshot is an immutable view of the store. Writers build a new snapshot
// and publish it only after it is durable.
type snapshot struct {
	records domain.RecordBatch
	norms   []float64
	dim     int
}

// Store is a VectorStore held fully in memory and persisted as a single
// JSON blob. Writes are serialised; searches run against the last
// published snapshot and never observe a partial write.
type Store struct {
	path string

	writeMu sync.Mutex
	mu      sync.RWMutex
	current *snapshot
}

// Open loads the knowledge base at path, or starts empty if the file does
// not exist yet. The parent directory is created if needed.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: knowledge base path is required", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating knowledge base directory: %w: %v", domain.ErrIO, err)
	}

	s := &Store{path: path, current: &snapshot{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug("knowledge base %s not found, starting empty", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading knowledge base: %w: %v", domain.ErrIO, err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding knowledge base %s: %w: %v", path, domain.ErrIO, err)
	}

	records := domain.RecordBatch{
		IDs:        f.IDs,
		Embeddings: f.Embeddings,
		Documents:  f.Documents,
		Metadatas:  f.Metadatas,
	}
	dim, err := records.Validate(0)
	if err != nil {
		return nil, fmt.Errorf("knowledge base %s is inconsistent: %w: %v", path, domain.ErrIO, err)
	}

	s.current = newSnapshot(records, dim)
	logger.Debug("loaded %d records (dimension %d) from %s", len(records.IDs), dim, path)
	return s, nil
}

func newSnapshot(records domain.RecordBatch, dim int) *snapshot {
	norms := make([]float64, len(records.Embeddings))
	for i, e := range records.Embeddings {
		norms[i] = norm(e)
	}
	return &snapshot{records: records, norms: norms, dim: dim}
}

// Path returns the knowledge-base file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) view() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) publish(next *snapshot) {
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
}

// Store appends the batch and persists the full store. The new records
// become visible to searches only once the write has succeeded.
func (s *Store) Store(_ context.Context, batch domain.RecordBatch) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev := s.view()
	dim, err := batch.Validate(prev.dim)
	if err != nil {
		return err
	}
	n := batch.Len()
	if n == 0 {
		return nil
	}

	total := len(prev.records.IDs) + n
	next := domain.RecordBatch{
		IDs:        make([]string, 0, total),
		Embeddings: make([][]float32, 0, total),
		Documents:  make([]string, 0, total),
		Metadatas:  make([]map[string]string, 0, total),
	}
	next.IDs = append(append(next.IDs, prev.records.IDs...), batch.IDs...)
	next.Documents = append(append(next.Documents, prev.records.Documents...), batch.Documents...)
	next.Embeddings = append(next.Embeddings, prev.records.Embeddings...)
	next.Metadatas = append(next.Metadatas, prev.records.Metadatas...)
	for i := 0; i < n; i++ {
		next.Embeddings = append(next.Embeddings, append([]float32(nil), batch.Embeddings[i]...))
		next.Metadatas = append(next.Metadatas, copyMetadata(batch.Metadatas[i]))
	}

	if err := s.persist(next); err != nil {
		return err
	}

	norms := make([]float64, 0, total)
	norms = append(norms, prev.norms...)
	for i := len(prev.records.IDs); i < total; i++ {
		norms = append(norms, norm(next.Embeddings[i]))
	}
	s.publish(&snapshot{records: next, norms: norms, dim: dim})

	logger.Debug("stored %d records, knowledge base now holds %d", n, total)
	return nil
}

// Search returns up to k records ranked by descending cosine similarity.
// Equal similarities keep insertion order.
func (s *Store) Search(_ context.Context, query []float32, k int) ([]domain.ScoredRecord, error) {
	snap := s.view()
	size := len(snap.records.IDs)
	if size == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != snap.dim {
		return nil, fmt.Errorf("query has %d dimensions, store has %d: %w",
			len(query), snap.dim, domain.ErrDimensionMismatch)
	}

	qNorm := norm(query)
	type hit struct {
		index      int
		similarity float64
	}
	hits := make([]hit, size)
	for i, e := range snap.records.Embeddings {
		hits[i] = hit{index: i, similarity: cosine(query, qNorm, e, snap.norms[i])}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].similarity > hits[b].similarity
	})

	if k > size {
		k = size
	}
	results := make([]domain.ScoredRecord, k)
	for i := 0; i < k; i++ {
		results[i] = domain.ScoredRecord{
			Record:     snap.records.Record(hits[i].index),
			Similarity: hits[i].similarity,
		}
	}
	return results, nil
}

// Clear persists an empty store and then publishes it. On a failed write
// the previous records remain both on disk and in memory.
func (s *Store) Clear(_ context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	empty := domain.RecordBatch{
		IDs:        []string{},
		Embeddings: [][]float32{},
		Documents:  []string{},
		Metadatas:  []map[string]string{},
	}
	if err := s.persist(empty); err != nil {
		return err
	}
	s.publish(&snapshot{})
	logger.Info("knowledge base cleared")
	return nil
}

// Stats groups the stored records by file name.
func (s *Store) Stats() domain.KnowledgeStats {
	snap := s.view()
	stats := domain.KnowledgeStats{
		TotalDocuments:  len(snap.records.Documents),
		TotalEmbeddings: len(snap.records.Embeddings),
		Files:           make(map[string]domain.FileStats),
	}
	for _, meta := range snap.records.Metadatas {
		name := meta[domain.MetaFileName]
		fs := stats.Files[name]
		if fs.ChunkCount == 0 {
			fs.Path = meta[domain.MetaFilePath]
		}
		fs.ChunkCount++
		stats.Files[name] = fs
	}
	stats.UniqueFiles = len(stats.Files)
	return stats
}

// Dimension returns the fixed embedding dimension, or 0 while empty.
func (s *Store) Dimension() int {
	return s.view().dim
}

// Close releases resources. The store holds no open handles.
func (s *Store) Close() error {
	return nil
}

// persist writes the records to a temporary file in the same directory
// and renames it over the knowledge base, so readers of the file see
// either the old or the new contents.
func (s *Store) persist(records domain.RecordBatch) (err error) {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".knowledge-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w: %v", domain.ErrIO, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	f := file{
		IDs:        records.IDs,
		Documents:  records.Documents,
		Embeddings: records.Embeddings,
		Metadatas:  records.Metadatas,
	}
	if err = json.NewEncoder(tmp).Encode(f); err != nil {
		return fmt.Errorf("encoding knowledge base: %w: %v", domain.ErrIO, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing knowledge base: %w: %v", domain.ErrIO, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing knowledge base: %w: %v", domain.ErrIO, err)
	}
	if err = os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("setting knowledge base permissions: %w: %v", domain.ErrIO, err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing knowledge base: %w: %v", domain.ErrIO, err)
	}
	return nil
}

func copyMetadata(src map[string]string) map[string]string {
	if src == nil {
		return map[string]string{}
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns 0 when either vector has zero magnitude.
func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}
