package hotreload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/leslieo2/go-hot-content/internal/snapshot"
)

// Watcher handles file system notifications for a directory tree
type Watcher struct {
	watcher    *fsnotify.Watcher
	logger     *zap.Logger
	paths      []string
	events     chan Event
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.RWMutex
	isWatching bool
}

// Event represents a file system event
type Event struct {
	Path string
	Op   fsnotify.Op
}

// NewWatcher creates a new file watcher
func NewWatcher(logger *zap.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		watcher:    fsWatcher,
		logger:     logger,
		paths:      make([]string, 0),
		events:     make(chan Event, 100),
		ctx:        ctx,
		cancel:     cancel,
		isWatching: false,
	}, nil
}

// Add adds a single file or directory to watch
func (w *Watcher) Add(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.addLocked(path)
}

func (w *Watcher) addLocked(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	if err := w.watcher.Add(absPath); err != nil {
		return fmt.Errorf("failed to add path %s: %w", absPath, err)
	}

	w.paths = append(w.paths, absPath)
	w.logger.Debug("Added watch path", zap.String("path", absPath))
	return nil
}

// AddRecursive watches root and every non-hidden directory below it.
// fsnotify does not recurse on its own; directories created later are
// picked up by the event loop.
func (w *Watcher) AddRecursive(root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.addLocked(path)
	})
}

// Remove removes a file or directory from watch
func (w *Watcher) Remove(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	if err := w.watcher.Remove(absPath); err != nil {
		return fmt.Errorf("failed to remove path %s: %w", absPath, err)
	}

	for i, p := range w.paths {
		if p == absPath {
			w.paths = append(w.paths[:i], w.paths[i+1:]...)
			break
		}
	}

	w.logger.Debug("Removed watch path", zap.String("path", absPath))
	return nil
}

// Paths returns a copy of the watched paths
func (w *Watcher) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, len(w.paths))
	copy(out, w.paths)
	return out
}

// Events returns the channel for file system events
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins watching for file system events
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.isWatching {
		w.mu.Unlock()
		return
	}
	w.isWatching = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.watch()
	w.logger.Info("File watcher started")
}

// Stop stops watching for file system events
func (w *Watcher) Stop() {
	w.mu.Lock()
	wasWatching := w.isWatching
	w.isWatching = false
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	if err := w.watcher.Close(); err != nil && !errors.Is(err, fsnotify.ErrClosed) {
		w.logger.Error("Failed to close file watcher", zap.Error(err))
	}
	if wasWatching {
		close(w.events)
		w.logger.Info("File watcher stopped")
	}
}

// watch is the main event loop for the watcher
func (w *Watcher) watch() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Create) {
				w.watchNewDirectory(event.Name)
			}

			if w.shouldSkipEvent(event.Name) {
				continue
			}

			w.logger.Debug("File system event", zap.String("path", event.Name), zap.String("operation", event.Op.String()))

			select {
			case w.events <- Event{Path: event.Name, Op: event.Op}:
			case <-w.ctx.Done():
				return
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", zap.Error(err))
		}
	}
}

// watchNewDirectory extends the watch to a directory created after Start
func (w *Watcher) watchNewDirectory(path string) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return
	}
	if err := w.AddRecursive(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		// Not a directory, or already gone
		w.logger.Debug("Skipped watching created path", zap.String("path", path), zap.Error(err))
	}
}

// shouldSkipEvent determines if an event should be skipped
func (w *Watcher) shouldSkipEvent(path string) bool {
	return snapshot.IsTemporary(filepath.Base(path))
}

// IsWatching returns whether the watcher is currently active
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.isWatching
}
