package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wtpulse/internal/logging"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestThrottle(window time.Duration, clock *fakeClock) *FetchThrottle {
	throttle := NewFetchThrottle(window, logging.Discard())
	throttle.now = clock.Now
	throttle.lastOnDisk = func(string) time.Time { return time.Time{} }
	return throttle
}

func TestFetchThrottle_SkipsWithinWindow(t *testing.T) {
	clock := newFakeClock()
	throttle := newTestThrottle(time.Minute, clock)
	key := fetchKey{commonDir: "/repo/.git", remote: "origin"}

	var fetches atomic.Int32
	fetch := func(context.Context) error {
		fetches.Add(1)
		return nil
	}

	throttle.Do(context.Background(), key, fetch)
	throttle.Do(context.Background(), key, fetch)
	assert.Equal(t, int32(1), fetches.Load())

	clock.Advance(59 * time.Second)
	throttle.Do(context.Background(), key, fetch)
	assert.Equal(t, int32(1), fetches.Load())

	clock.Advance(2 * time.Second)
	throttle.Do(context.Background(), key, fetch)
	assert.Equal(t, int32(2), fetches.Load())
}

func TestFetchThrottle_ConcurrentCallersShareOneFetch(t *testing.T) {
	throttle := newTestThrottle(time.Minute, newFakeClock())
	key := fetchKey{commonDir: "/repo/.git", remote: "origin"}

	release := make(chan struct{})
	var fetches atomic.Int32
	fetch := func(context.Context) error {
		fetches.Add(1)
		<-release
		return nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			throttle.Do(context.Background(), key, fetch)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), fetches.Load())
}

func TestFetchThrottle_FailureIsSwallowedAndStillThrottles(t *testing.T) {
	clock := newFakeClock()
	throttle := newTestThrottle(time.Minute, clock)
	key := fetchKey{commonDir: "/repo/.git", remote: "origin"}

	var fetches atomic.Int32
	fetch := func(context.Context) error {
		fetches.Add(1)
		return errors.New("could not resolve host")
	}

	throttle.Do(context.Background(), key, fetch)
	throttle.Do(context.Background(), key, fetch)

	assert.Equal(t, int32(1), fetches.Load())
	assert.Equal(t, clock.Now(), throttle.LastFetchAt(key))
}

func TestFetchThrottle_KeysAreIndependent(t *testing.T) {
	throttle := newTestThrottle(time.Minute, newFakeClock())

	var fetches atomic.Int32
	fetch := func(context.Context) error {
		fetches.Add(1)
		return nil
	}

	throttle.Do(context.Background(), fetchKey{commonDir: "/a/.git", remote: "origin"}, fetch)
	throttle.Do(context.Background(), fetchKey{commonDir: "/a/.git", remote: "upstream"}, fetch)
	throttle.Do(context.Background(), fetchKey{commonDir: "/b/.git", remote: "origin"}, fetch)

	assert.Equal(t, int32(3), fetches.Load())
}

func TestFetchThrottle_FlightKeyHasNoCollisions(t *testing.T) {
	a := fetchKey{commonDir: "/repo", remote: "x:origin"}
	b := fetchKey{commonDir: "/repo:x", remote: "origin"}

	assert.NotEqual(t, a.flightKey(), b.flightKey())
}

func TestFetchThrottle_ZeroWindowNeverThrottles(t *testing.T) {
	throttle := newTestThrottle(0, newFakeClock())
	key := fetchKey{commonDir: "/repo/.git", remote: "origin"}

	var fetches atomic.Int32
	for range 3 {
		throttle.Do(context.Background(), key, func(context.Context) error {
			fetches.Add(1)
			return nil
		})
	}

	assert.Equal(t, int32(3), fetches.Load())
}

func TestFetchThrottle_NegativeWindowUsesDefault(t *testing.T) {
	throttle := NewFetchThrottle(-1, logging.Discard())
	assert.Equal(t, DefaultRefreshInterval, throttle.window)
}

func TestFetchThrottle_CallerCancelDoesNotAbortFetch(t *testing.T) {
	throttle := newTestThrottle(time.Minute, newFakeClock())
	key := fetchKey{commonDir: "/repo/.git", remote: "origin"}

	started := make(chan struct{})
	release := make(chan struct{})
	fetchErr := make(chan error, 1)
	fetch := func(ctx context.Context) error {
		close(started)
		<-release
		fetchErr <- ctx.Err()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		throttle.Do(ctx, key, fetch)
		close(done)
	}()

	<-started
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}

	close(release)
	select {
	case err := <-fetchErr:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("fetch did not finish")
	}
}

func TestFetchThrottle_ResetForgetsTimestamps(t *testing.T) {
	throttle := newTestThrottle(time.Hour, newFakeClock())
	key := fetchKey{commonDir: "/repo/.git", remote: "origin"}

	var fetches atomic.Int32
	fetch := func(context.Context) error {
		fetches.Add(1)
		return nil
	}

	throttle.Do(context.Background(), key, fetch)
	require.False(t, throttle.LastFetchAt(key).IsZero())

	throttle.Reset()
	assert.True(t, throttle.LastFetchAt(key).IsZero())

	throttle.Do(context.Background(), key, fetch)
	assert.Equal(t, int32(2), fetches.Load())
}

func TestFetchThrottle_StartsFromFetchOnDisk(t *testing.T) {
	clock := newFakeClock()
	throttle := newTestThrottle(time.Minute, clock)
	throttle.lastOnDisk = func(string) time.Time { return clock.Now().Add(-30 * time.Second) }
	key := fetchKey{commonDir: "/repo/.git", remote: "origin"}

	var fetches atomic.Int32
	fetch := func(context.Context) error {
		fetches.Add(1)
		return nil
	}

	throttle.Do(context.Background(), key, fetch)
	assert.Equal(t, int32(0), fetches.Load(), "fetched 30s ago by another process")

	clock.Advance(31 * time.Second)
	throttle.Do(context.Background(), key, fetch)
	assert.Equal(t, int32(1), fetches.Load())
}

func TestFetchThrottle_ResetIgnoresFetchOnDisk(t *testing.T) {
	clock := newFakeClock()
	throttle := newTestThrottle(time.Hour, clock)
	fetchedAt := clock.Now()
	throttle.lastOnDisk = func(string) time.Time { return fetchedAt }

	var fetches atomic.Int32
	fetch := func(context.Context) error {
		fetches.Add(1)
		return nil
	}

	clock.Advance(time.Second)
	throttle.Reset()

	throttle.Do(context.Background(), fetchKey{commonDir: "/repo/.git", remote: "origin"}, fetch)
	assert.Equal(t, int32(1), fetches.Load())
}
