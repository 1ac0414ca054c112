// Package watch re-runs work when project files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before changes are handed over.
const DefaultDebounce = 200 * time.Millisecond

// Handler receives the changed files, relative to the root, once the tree
// has been quiet for the debounce period. Calls never overlap.
type Handler func(ctx context.Context, files []string)

// Watcher watches a directory tree.
type Watcher struct {
	root       string
	exclude    []string
	extensions []string
	debounce   time.Duration
	ready      chan struct{}
	logger     *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithExtensions limits reported files to the given extensions.
func WithExtensions(exts ...string) Option {
	return func(w *Watcher) { w.extensions = exts }
}

// New creates a Watcher over root skipping directories named in exclude.
func New(root string, exclude []string, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		exclude:  append(slices.Clone(exclude), ".git"),
		debounce: DefaultDebounce,
		ready:    make(chan struct{}),
		logger:   slog.Default().With("module", "watch"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Ready is closed once the initial tree is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is done and calls handle with debounced batches.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := w.addTree(fw, w.root); err != nil {
		return err
	}
	close(w.ready)
	w.logger.Info("watching", "root", w.root, "debounce", w.debounce.String())

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.excluded(event.Name) {
						if err := w.addTree(fw, event.Name); err != nil {
							w.logger.Warn("watch new directory", "path", event.Name, "error", err)
						}
					}
					continue
				}
			}
			rel, ok := w.relevant(event.Name)
			if !ok {
				continue
			}
			pending[rel] = struct{}{}
			timer.Reset(w.debounce)

		case <-timer.C:
			files := w.flush(pending)
			clear(pending)
			if len(files) == 0 {
				continue
			}
			w.logger.Debug("change detected", "files", len(files))
			handle(ctx, files)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// addTree adds dir and its subdirectories outside the exclude list.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && slices.Contains(w.exclude, d.Name()) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	return nil
}

// relevant maps an event path to a root-relative file path, dropping
// excluded directories and unwanted extensions.
func (w *Watcher) relevant(path string) (string, bool) {
	if w.excluded(path) {
		return "", false
	}
	if len(w.extensions) > 0 && !slices.Contains(w.extensions, filepath.Ext(path)) {
		return "", false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (w *Watcher) excluded(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return true
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, p := range parts[:len(parts)-1] {
		if slices.Contains(w.exclude, p) {
			return true
		}
	}
	return slices.Contains(w.exclude, parts[len(parts)-1]) && isDir(path)
}

// flush returns the pending files that still exist, sorted.
func (w *Watcher) flush(pending map[string]struct{}) []string {
	files := make([]string, 0, len(pending))
	for rel := range pending {
		info, err := os.Stat(filepath.Join(w.root, filepath.FromSlash(rel)))
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, rel)
	}
	slices.Sort(files)
	return files
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
