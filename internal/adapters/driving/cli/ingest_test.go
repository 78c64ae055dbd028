package cli

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/parley/internal/core/domain"
)

func TestIngestCommand_PrintsReport(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	ts.knowledge.report = domain.IngestReport{
		Ingested: 2,
		Chunks:   7,
		Skipped:  1,
		Failures: map[string]error{
			"/docs/z.bin": errors.New("unsupported file type"),
			"/docs/a.pdf": errors.New("corrupt"),
		},
	}

	out, err := executeCommand("", "ingest", "/docs")
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"/docs"}}, ts.knowledge.paths)
	assert.Contains(t, out, "Ingested 2 document(s), 7 chunk(s), skipped 1 empty")
	assert.Contains(t, out, "Failed 2:")
	assert.Less(t,
		strings.Index(out, "/docs/a.pdf: corrupt"),
		strings.Index(out, "/docs/z.bin: unsupported file type"),
		"failures are sorted by path")
}

func TestIngestCommand_Error(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	ts.knowledge.err = domain.ErrIO
	ts.knowledge.report = domain.IngestReport{
		Failures: map[string]error{"/docs/a.txt": domain.ErrIO},
		Pending:  []string{"/docs/b.txt", "/docs/c.txt"},
	}

	out, err := executeCommand("", "ingest", "/docs")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIO)
	assert.Contains(t, out, "Not processed 2:\n  - /docs/b.txt\n  - /docs/c.txt\n")
}

func TestIngestCommand_RequiresPath(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("", "ingest")
	assert.Error(t, err)
}

func TestWatchRoots_KeepsDirectoriesOnly(t *testing.T) {
	dir := t.TempDir()

	roots := watchRoots([]string{dir, dir + "/missing.txt"})
	assert.Equal(t, []string{dir}, roots)
}

func TestWatchAndIngest_NoDirectories(t *testing.T) {
	err := watchAndIngest(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--watch needs at least one directory")
}

func TestFirstFailure(t *testing.T) {
	_, ok := firstFailure(nil)
	assert.False(t, ok)

	err, ok := firstFailure(map[string]error{"a": domain.ErrUnsupportedType})
	assert.True(t, ok)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
