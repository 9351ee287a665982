// Package watcher requests early poller ticks when files under watched
// working copies change.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"wtpulse/internal/logging"
)

// DefaultDebounce collapses bursts of events (saves, checkouts) into one notification
const DefaultDebounce = 300 * time.Millisecond

// ignoredDirs are never watched and their events never notify
var ignoredDirs = map[string]bool{
	".cache":       true,
	".idea":        true,
	"build":        true,
	"dist":         true,
	"node_modules": true,
	"target":       true,
	"vendor":       true,
}

// Watcher watches a set of working copies recursively and calls onChange,
// debounced, after files change. A checkout also notifies because .git/HEAD is watched.
type Watcher struct {
	debounce time.Duration
	fs       *fsnotify.Watcher
	logger   *slog.Logger
	onChange func()

	mu     sync.Mutex
	closed bool
	roots  map[string]bool
	timer  *time.Timer
}

// New creates a Watcher. A debounce of zero or less uses DefaultDebounce.
func New(onChange func(), debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logging.Logger
	}

	w := &Watcher{
		debounce: debounce,
		fs:       fs,
		logger:   logger,
		onChange: onChange,
		roots:    make(map[string]bool),
	}
	go w.observe()
	return w, nil
}

// Sync makes the watched roots equal to paths
func (w *Watcher) Sync(paths []string) {
	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			want[filepath.Clean(p)] = true
		}
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	var added, removed []string
	for root := range want {
		if !w.roots[root] {
			added = append(added, root)
			w.roots[root] = true
		}
	}
	for root := range w.roots {
		if !want[root] {
			removed = append(removed, root)
			delete(w.roots, root)
		}
	}
	w.mu.Unlock()

	for _, root := range removed {
		w.removeRoot(root)
	}
	for _, root := range added {
		if err := w.addRoot(root); err != nil {
			w.logger.Warn("Failed to watch working copy", "path", root, "error", err)
		}
	}
}

// Roots returns the watched working copies
func (w *Watcher) Roots() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	roots := make([]string, 0, len(w.roots))
	for root := range w.roots {
		roots = append(roots, root)
	}
	return roots
}

// Close stops watching. Safe to call repeatedly.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	return w.fs.Close()
}

func (w *Watcher) addRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.fs.Add(root)
	}

	// .git is a directory in the main checkout and a file in linked worktrees
	if gitDir := filepath.Join(root, ".git"); isDir(gitDir) {
		if err := w.fs.Add(gitDir); err != nil {
			w.logger.Debug("Failed to watch git dir", "path", gitDir, "error", err)
		}
	}

	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && (d.Name() == ".git" || ignoredDirs[d.Name()]) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			w.logger.Debug("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) removeRoot(root string) {
	prefix := root + string(filepath.Separator)
	for _, path := range w.fs.WatchList() {
		if path == root || strings.HasPrefix(path, prefix) {
			_ = w.fs.Remove(path)
		}
	}
}

func (w *Watcher) observe() {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if isIgnored(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) && isDir(ev.Name) && !insideGitDir(ev.Name) {
				_ = filepath.WalkDir(ev.Name, func(path string, d os.DirEntry, err error) error {
					if err != nil || !d.IsDir() {
						return nil
					}
					if ignoredDirs[d.Name()] || d.Name() == ".git" {
						return filepath.SkipDir
					}
					_ = w.fs.Add(path)
					return nil
				})
			}
			w.schedule()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", "error", err)
		}
	}
}

// schedule restarts the debounce timer
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}

// isIgnored reports whether an event on path should not notify.
// Inside .git only HEAD matters: it changes on checkout.
func isIgnored(path string) bool {
	if path == "" {
		return true
	}
	if insideGitDir(path) {
		return filepath.Base(path) != "HEAD"
	}

	sep := string(filepath.Separator)
	for dir := range ignoredDirs {
		if strings.Contains(path, sep+dir+sep) || filepath.Base(path) == dir {
			return true
		}
	}
	return filepath.Base(path) == ".git"
}

func insideGitDir(path string) bool {
	sep := string(filepath.Separator)
	return strings.Contains(path, sep+".git"+sep)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
