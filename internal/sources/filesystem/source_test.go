package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/normalisers"
	"github.com/custodia-labs/parley/internal/postprocessors"
)

func newTestSource(t *testing.T, chunkWords int) *Source {
	t.Helper()
	pipeline, err := postprocessors.DefaultPipeline(chunkWords)
	require.NoError(t, err)
	return New(normalisers.Defaults(), pipeline)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func sourceIDs(docs []domain.IngestDocument) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.Source.ID
	}
	return ids
}

func TestSource_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	writeFile(t, path, "one two three four five six seven")

	doc, err := newTestSource(t, 3).LoadFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, domain.SourceDocument{
		ID:       "notes",
		Name:     "notes.txt",
		Path:     path,
		MIMEKind: domain.MIMEKindText,
	}, doc.Source)
	assert.Equal(t, []string{"one two three", "four five six", "seven"}, doc.Chunks)
}

func TestSource_Load_WalksDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "# Alpha\n\nalpha text")
	writeFile(t, filepath.Join(dir, "sub", "b.html"), "<p>beta text</p>")
	writeFile(t, filepath.Join(dir, "sub", "image.png"), "binary")
	writeFile(t, filepath.Join(dir, ".hidden.txt"), "hidden")
	writeFile(t, filepath.Join(dir, ".git", "c.txt"), "hidden dir")

	docs, errs := newTestSource(t, 200).Load(context.Background(), []string{dir})
	assert.Empty(t, errs)
	require.Len(t, docs, 2)

	assert.Equal(t, []string{"a", "b"}, sourceIDs(docs))
	assert.Equal(t, []string{"Alpha alpha text"}, docs[0].Chunks)
	assert.Equal(t, []string{"beta text"}, docs[1].Chunks)
}

func TestSource_Load_ReportsFailuresAndContinues(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	unsupported := filepath.Join(dir, "data.xyz")
	corrupt := filepath.Join(dir, "broken.docx")
	missing := filepath.Join(dir, "missing.txt")
	writeFile(t, good, "fine")
	writeFile(t, unsupported, "??")
	writeFile(t, corrupt, "not a zip")

	docs, errs := newTestSource(t, 200).Load(context.Background(), []string{missing, unsupported, corrupt, good})
	require.Len(t, docs, 1)
	assert.Equal(t, "good", docs[0].Source.ID)
	require.Len(t, errs, 3)

	paths := make([]string, 0, len(errs))
	for _, err := range errs {
		var loadErr *domain.LoadError
		require.True(t, errors.As(err, &loadErr), "expected LoadError, got %T", err)
		paths = append(paths, loadErr.Path)
	}
	assert.Equal(t, []string{missing, unsupported, corrupt}, paths)
	assert.ErrorIs(t, errs[0], os.ErrNotExist)
	assert.ErrorIs(t, errs[1], domain.ErrUnsupportedType)
	assert.ErrorIs(t, errs[2], domain.ErrInvalidInput)
}

func TestSource_Load_DeduplicatesPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "once.txt")
	writeFile(t, path, "text")

	docs, errs := newTestSource(t, 200).Load(context.Background(), []string{path, "file://" + path, dir})
	assert.Empty(t, errs)
	assert.Len(t, docs, 1)
}

func TestSource_Load_EmptyFileHasNoChunks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	writeFile(t, path, "   ")

	docs, errs := newTestSource(t, 200).Load(context.Background(), []string{path})
	assert.Empty(t, errs)
	require.Len(t, docs, 1)
	assert.Empty(t, docs[0].Chunks)
}

func TestSource_Load_FileTooLarge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.txt")
	writeFile(t, path, strings.Repeat("word ", 100))

	source := newTestSource(t, 200)
	source.SetMaxFileBytes(10)

	docs, errs := source.Load(context.Background(), []string{path})
	assert.Empty(t, docs)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrFileTooLarge)
}

func TestSource_Load_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "text")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs, errs := newTestSource(t, 200).Load(ctx, []string{dir})
	assert.Empty(t, docs)
	require.NotEmpty(t, errs)
	assert.ErrorIs(t, errs[0], context.Canceled)
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "/tmp/a.txt", ResolvePath("file:///tmp/a.txt"))
	assert.Equal(t, "relative/a.txt", ResolvePath("relative/a.txt"))
}

// TestIsHidden tests the isHidden function with various path scenarios.
func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden", true},
		{"path/to/.hidden", true},
		{"/path/.hidden/file.txt", true},
		{"dir/.git/config", true},
		{".config/.cache/data", true},

		{"file.txt", false},
		{"path/to/file.txt", false},
		{".", false},
		{"..", false},
		{"path/./file", false},
		{"path/../file", false},
		{"", false},
		{"/", false},
		{"file.hidden", false},
		{"directory.name/file", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHidden(tt.path))
		})
	}
}
