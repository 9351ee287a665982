package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wtpulse/internal/logging"
)

func newTestWatcher(t *testing.T, debounce time.Duration) (*Watcher, chan struct{}) {
	t.Helper()

	changes := make(chan struct{}, 16)
	w, err := New(func() { changes <- struct{}{} }, debounce, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, changes
}

func waitChange(changes <-chan struct{}, timeout time.Duration) bool {
	select {
	case <-changes:
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestWatcher_NotifiesOnFileChange(t *testing.T) {
	root := t.TempDir()
	w, changes := newTestWatcher(t, 20*time.Millisecond)
	w.Sync([]string{root})

	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644))

	assert.True(t, waitChange(changes, 2*time.Second))
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	root := t.TempDir()
	w, changes := newTestWatcher(t, 150*time.Millisecond)
	w.Sync([]string{root})

	for i := range 10 {
		name := filepath.Join(root, "f"+string(rune('a'+i)))
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
	}

	require.True(t, waitChange(changes, 2*time.Second))
	assert.False(t, waitChange(changes, 400*time.Millisecond))
}

func TestWatcher_WatchesNewSubdirectories(t *testing.T) {
	root := t.TempDir()
	w, changes := newTestWatcher(t, 20*time.Millisecond)
	w.Sync([]string{root})

	sub := filepath.Join(root, "pkg")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.True(t, waitChange(changes, 2*time.Second))

	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.go"), []byte("package pkg\n"), 0o644))
	assert.True(t, waitChange(changes, 2*time.Second))
}

func TestWatcher_IgnoresVendoredDirs(t *testing.T) {
	root := t.TempDir()
	modules := filepath.Join(root, "node_modules")
	require.NoError(t, os.Mkdir(modules, 0o755))

	w, changes := newTestWatcher(t, 20*time.Millisecond)
	w.Sync([]string{root})

	require.NoError(t, os.WriteFile(filepath.Join(modules, "dep.js"), []byte("x"), 0o644))

	assert.False(t, waitChange(changes, 200*time.Millisecond))
}

func TestWatcher_SyncAddsAndRemovesRoots(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	w, changes := newTestWatcher(t, 20*time.Millisecond)

	w.Sync([]string{a, b, " "})
	assert.ElementsMatch(t, []string{a, b}, w.Roots())

	w.Sync([]string{b})
	assert.Equal(t, []string{b}, w.Roots())

	require.NoError(t, os.WriteFile(filepath.Join(a, "gone.txt"), []byte("x"), 0o644))
	assert.False(t, waitChange(changes, 200*time.Millisecond))
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	w, err := New(func() {}, 0, logging.Discard())
	require.NoError(t, err)

	assert.Equal(t, DefaultDebounce, w.debounce)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())

	assert.NotPanics(t, func() { w.Sync([]string{t.TempDir()}) })
}

func TestIsIgnored(t *testing.T) {
	sep := string(filepath.Separator)
	tests := []struct {
		path     string
		expected bool
	}{
		{"", true},
		{sep + "repo" + sep + "main.go", false},
		{sep + "repo" + sep + ".git" + sep + "HEAD", false},
		{sep + "repo" + sep + ".git" + sep + "index", true},
		{sep + "repo" + sep + ".git" + sep + "HEAD.lock", true},
		{sep + "repo" + sep + ".git", true},
		{sep + "repo" + sep + "node_modules" + sep + "x.js", true},
		{sep + "repo" + sep + "dist", true},
		{sep + "repo" + sep + "distribution.go", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isIgnored(tt.path))
		})
	}
}
