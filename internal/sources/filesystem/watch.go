package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/logger"
)

// DefaultSettleDelay is how long a file must stay quiet before it is
// reported. Editors and copies often write a file in several bursts.
const DefaultSettleDelay = 500 * time.Millisecond

// ErrWatcherClosed is returned when Watch is called after Close.
var ErrWatcherClosed = errors.New("watcher closed")

// Watcher reports supported files that are created or written under a
// root directory, recursively.
type Watcher struct {
	root   string
	settle time.Duration

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for root. Nothing is watched until Watch.
func NewWatcher(root string) *Watcher {
	return &Watcher{root: root, settle: DefaultSettleDelay}
}

// SetSettleDelay changes the quiet period before a file is reported.
func (w *Watcher) SetSettleDelay(d time.Duration) {
	w.settle = d
}

// Watch starts watching and returns a channel of settled file paths.
// The channel closes when ctx is cancelled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrWatcherClosed
	}

	info, err := os.Stat(w.root)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", w.root)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := addTree(fw, w.root); err != nil {
		fw.Close()
		return nil, err
	}
	w.watcher = fw

	out := make(chan string)
	go w.loop(ctx, fw, out)
	return out, nil
}

// loop forwards settled paths until ctx ends or fsnotify closes.
func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	defer fw.Close()

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.tick())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if path, ok := w.handleFsEvent(fw, event); ok {
				pending[path] = time.Now()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch: %v", err)

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < w.settle {
					continue
				}
				delete(pending, path)
				select {
				case out <- path:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (w *Watcher) tick() time.Duration {
	if t := w.settle / 5; t > 10*time.Millisecond {
		return t
	}
	return 10 * time.Millisecond
}

// handleFsEvent returns the path to report for event, if any.
// New directories are added to the watch. Removals are ignored because
// the knowledge base only forgets documents on a full clear.
func (w *Watcher) handleFsEvent(fw *fsnotify.Watcher, event fsnotify.Event) (string, bool) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || isHidden(rel) {
		return "", false
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) && fw != nil {
			if err := addTree(fw, event.Name); err != nil {
				logger.Warn("watch: %v", err)
			}
		}
		return "", false
	}
	if !info.Mode().IsRegular() || !domain.MIMEKindFromPath(event.Name).IsSupported() {
		return "", false
	}
	return event.Name, true
}

// addTree watches root and every non-hidden directory below it.
func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
