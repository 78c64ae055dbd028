package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
	"github.com/custodia-labs/parley/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// DefaultMaxFileBytes caps how much of a single file is read.
const DefaultMaxFileBytes = 50 << 20

// ErrFileTooLarge is returned for files above the size cap.
var ErrFileTooLarge = errors.New("file too large")

// Source reads documents from the local filesystem.
type Source struct {
	normalisers  driven.NormaliserRegistry
	pipeline     driven.PostProcessorPipeline
	maxFileBytes int64
}

// New creates a filesystem source.
func New(normalisers driven.NormaliserRegistry, pipeline driven.PostProcessorPipeline) *Source {
	return &Source{
		normalisers:  normalisers,
		pipeline:     pipeline,
		maxFileBytes: DefaultMaxFileBytes,
	}
}

// SetMaxFileBytes changes the size cap. Values <= 0 are ignored.
func (s *Source) SetMaxFileBytes(n int64) {
	if n > 0 {
		s.maxFileBytes = n
	}
}

// Load reads every supported file under paths. A path named directly
// with an unsupported extension is reported as an error; inside a walked
// directory such files are skipped. Hidden files and directories are
// never walked. Each file is loaded at most once.
func (s *Source) Load(ctx context.Context, paths []string) ([]domain.IngestDocument, []error) {
	var (
		docs []domain.IngestDocument
		errs []error
		seen = make(map[string]bool)
	)

	load := func(path string) {
		if seen[path] {
			return
		}
		seen[path] = true

		doc, err := s.LoadFile(ctx, path)
		if err != nil {
			errs = append(errs, err)
			return
		}
		docs = append(docs, doc)
	}

	for _, raw := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		path := ResolvePath(raw)
		info, err := os.Stat(path)
		if err != nil {
			errs = append(errs, &domain.LoadError{Path: path, Err: err})
			continue
		}

		if !info.IsDir() {
			load(path)
			continue
		}

		files, err := s.walk(ctx, path)
		if err != nil {
			errs = append(errs, &domain.LoadError{Path: path, Err: err})
		}
		for _, file := range files {
			load(file)
		}
	}

	logger.Debug("filesystem: loaded %d document(s), %d error(s)", len(docs), len(errs))
	return docs, errs
}

// walk collects the supported, non-hidden files under root in lexical order.
func (s *Source) walk(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("filesystem: skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if path != root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !domain.MIMEKindFromPath(path).IsSupported() {
			logger.Debug("filesystem: skipping unsupported file %s", path)
			return nil
		}

		files = append(files, path)
		return nil
	})
	return files, err
}

// LoadFile reads, normalises and chunks a single file.
// Errors are *domain.LoadError values.
func (s *Source) LoadFile(ctx context.Context, path string) (domain.IngestDocument, error) {
	source := domain.NewSourceDocument(path)
	fail := func(err error) (domain.IngestDocument, error) {
		return domain.IngestDocument{}, &domain.LoadError{Path: path, Err: err}
	}

	if !source.MIMEKind.IsSupported() {
		return fail(fmt.Errorf("%w: %s", domain.ErrUnsupportedType, filepath.Ext(path)))
	}

	content, err := s.readFile(path)
	if err != nil {
		return fail(err)
	}

	result, err := s.normalisers.Normalise(ctx, &domain.RawDocument{Source: source, Content: content})
	if err != nil {
		return fail(err)
	}

	chunks, err := s.pipeline.Process(ctx, result.Content)
	if err != nil {
		return fail(fmt.Errorf("chunking: %w", err))
	}

	logger.Debug("filesystem: %s -> %d chunk(s)", path, len(chunks))
	return domain.IngestDocument{Source: source, Chunks: chunks}, nil
}

func (s *Source) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, s.maxFileBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > s.maxFileBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrFileTooLarge, s.maxFileBytes)
	}
	return content, nil
}

// ResolvePath converts a file:// URI to a local path.
// Bare paths pass through unchanged.
func ResolvePath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

// isHidden reports whether a path has a dot-prefixed element.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && part[0] == '.' && part != ".." {
			return true
		}
	}
	return false
}
