// Package hotfolder watches a directory tree and reports files that were
// created or rewritten, debounced into batches.
package hotfolder

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a directory (recursively) and notifies handlers with the
// sorted set of regular files touched since the last notification.
type Watcher struct {
	root     string
	debounce time.Duration
	ignore   func(path string) bool
	handlers []func([]string)
	mu       sync.RWMutex
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the tree must be quiet before handlers run.
// Default is 1500ms.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithIgnore skips paths (files or directories) for which ignore returns true.
// Hidden entries are always skipped.
func WithIgnore(ignore func(path string) bool) Option {
	return func(w *Watcher) {
		w.ignore = ignore
	}
}

// New creates a watcher rooted at dir.
func New(dir string, logger *slog.Logger, opts ...Option) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		root:     dir,
		debounce: 1500 * time.Millisecond,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnChange registers a handler called with each debounced batch of paths.
// Returns an unsubscribe function to remove the handler.
func (w *Watcher) OnChange(handler func([]string)) func() {
	w.mu.Lock()
	w.handlers = append(w.handlers, handler)
	idx := len(w.handlers) - 1
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if idx < len(w.handlers) {
			w.handlers[idx] = nil
		}
	}
}

// Start adds the root and every subdirectory to the watch list and begins
// delivering events.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	if addErr := w.addTree(w.root); addErr != nil {
		watcher.Close()
		return addErr
	}

	w.logger.Info("Watching folder", "path", w.root, "debounce", w.debounce)
	go w.watch()
	return nil
}

// Stop stops watching and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.cancel()
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) skip(path string) bool {
	if path != w.root && strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	return w.ignore != nil && w.ignore(path)
}

// addTree registers dir and its subdirectories with fsnotify.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.skip(path) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// watch is the main loop that listens for file changes.
func (w *Watcher) watch() {
	defer close(w.done)

	var timer *time.Timer
	var timerC <-chan time.Time
	pending := make(map[string]struct{})

	for {
		select {
		case <-w.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Debug("Folder watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || w.skip(event.Name) {
				continue
			}

			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if event.Op&fsnotify.Create != 0 {
					if addErr := w.addTree(event.Name); addErr != nil {
						w.logger.Warn("Failed to watch new directory", "path", event.Name, "error", addErr)
					}
					w.collectTree(event.Name, pending)
				}
			} else if info.Mode().IsRegular() {
				pending[event.Name] = struct{}{}
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			slices.Sort(paths)
			w.logger.Debug("Folder changed", "files", len(paths))
			w.notify(paths)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Folder watcher error", "error", err)
		}
	}
}

// collectTree records files already present in a directory that appeared
// as a whole (moved in or created with contents before it was watched).
func (w *Watcher) collectTree(dir string, pending map[string]struct{}) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if w.skip(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			pending[path] = struct{}{}
		}
		return nil
	})
}

func (w *Watcher) notify(paths []string) {
	w.mu.RLock()
	handlers := make([]func([]string), 0, len(w.handlers))
	for _, h := range w.handlers {
		if h != nil {
			handlers = append(handlers, h)
		}
	}
	w.mu.RUnlock()

	for _, handler := range handlers {
		handler(slices.Clone(paths))
	}
}
