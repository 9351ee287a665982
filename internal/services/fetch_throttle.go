package services

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultRefreshInterval is the minimum time between two fetches of one repository+remote
const DefaultRefreshInterval = 120 * time.Second

// fetchKey identifies a remote of a repository. commonDir is shared by all
// worktrees of one repository, so they throttle together.
type fetchKey struct {
	commonDir string
	remote    string
}

// flightKey encodes the key for singleflight without separator collisions
func (k fetchKey) flightKey() string {
	return strconv.Itoa(len(k.commonDir)) + ":" + k.commonDir + k.remote
}

type fetchState struct {
	inFlight    bool
	lastFetchAt time.Time
}

// FetchThrottle runs at most one fetch per key at a time and at most one per window.
// A key seen for the first time starts from the mtime of FETCH_HEAD in its common
// dir, so short-lived processes such as `wtpulse status` share one window.
type FetchThrottle struct {
	group      singleflight.Group
	lastOnDisk func(commonDir string) time.Time
	logger     *slog.Logger
	mu         sync.Mutex
	now        func() time.Time
	resetAt    time.Time
	states     map[fetchKey]*fetchState
	window     time.Duration
}

// NewFetchThrottle creates a FetchThrottle. A negative window falls back to the default.
func NewFetchThrottle(window time.Duration, logger *slog.Logger) *FetchThrottle {
	if window < 0 {
		window = DefaultRefreshInterval
	}
	return &FetchThrottle{
		lastOnDisk: fetchHeadTime,
		logger:     logger,
		now:        time.Now,
		states:     make(map[fetchKey]*fetchState),
		window:     window,
	}
}

// fetchHeadTime returns when git last wrote FETCH_HEAD in commonDir, zero if never
func fetchHeadTime(commonDir string) time.Time {
	info, err := os.Stat(filepath.Join(commonDir, "FETCH_HEAD"))
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Do runs fetch for key, joins the fetch already in flight for key, or returns
// immediately when key was fetched within the window. Fetch errors are logged
// and swallowed. Blocks until the fetch completes or ctx is done.
func (t *FetchThrottle) Do(ctx context.Context, key fetchKey, fetch func(ctx context.Context) error) {
	t.mu.Lock()
	st, ok := t.states[key]
	if !ok {
		st = &fetchState{}
		// Fetches older than the last Reset do not count
		if at := t.lastOnDisk(key.commonDir); at.After(t.resetAt) {
			st.lastFetchAt = at
		}
		t.states[key] = st
	}

	if !st.inFlight {
		if !st.lastFetchAt.IsZero() && t.now().Sub(st.lastFetchAt) < t.window {
			t.mu.Unlock()
			t.logger.Debug("Remote fetch throttled", "common_dir", key.commonDir, "remote", key.remote)
			return
		}
		// Recorded before the fetch starts so late callers see it
		st.lastFetchAt = t.now()
		st.inFlight = true
	}

	ch := t.group.DoChan(key.flightKey(), func() (any, error) {
		t.mu.Lock()
		st.inFlight = true
		st.lastFetchAt = t.now()
		t.mu.Unlock()

		defer func() {
			t.mu.Lock()
			st.inFlight = false
			t.mu.Unlock()
		}()

		t.logger.Debug("Fetching remote", "common_dir", key.commonDir, "remote", key.remote)
		// Joined callers share this fetch, so it must outlive the first caller
		if err := fetch(context.WithoutCancel(ctx)); err != nil {
			t.logger.Warn("Remote fetch failed", "common_dir", key.commonDir, "remote", key.remote, "error", err)
		}
		return nil, nil
	})
	t.mu.Unlock()

	select {
	case <-ch:
	case <-ctx.Done():
	}
}

// LastFetchAt returns when key was last fetched (zero if never)
func (t *FetchThrottle) LastFetchAt(key fetchKey) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.states[key]; ok {
		return st.lastFetchAt
	}
	return time.Time{}
}

// Reset forgets every fetch timestamp, including fetches recorded on disk
func (t *FetchThrottle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetAt = t.now()
	for k, st := range t.states {
		if !st.inFlight {
			delete(t.states, k)
		}
	}
}
