// Package gittest provides a scriptable ports.CommandRunner for tests.
package gittest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"wtpulse/internal/ports"
)

// ErrUnscripted is returned for commands the test did not script
var ErrUnscripted = errors.New("unscripted git command")

// Call records one invocation
type Call struct {
	Args []string
	Cwd  string
}

type response struct {
	delay time.Duration
	err   error
	out   string
}

// Runner answers git commands from a script. Lookup order: cwd-specific, then any cwd.
// Unscripted commands fail with ErrUnscripted.
type Runner struct {
	mu        sync.Mutex
	anyCwd    map[string]response
	calls     []Call
	perCwd    map[string]response
	active    map[string]int
	maxActive map[string]int
}

// Verify interface compliance at compile time
var _ ports.CommandRunner = (*Runner)(nil)

// NewRunner creates an empty Runner
func NewRunner() *Runner {
	return &Runner{
		active:    make(map[string]int),
		anyCwd:    make(map[string]response),
		maxActive: make(map[string]int),
		perCwd:    make(map[string]response),
	}
}

// Set scripts a successful answer for args in any cwd
func (r *Runner) Set(out string, args ...string) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anyCwd[key(args)] = response{out: out}
	return r
}

// SetIn scripts a successful answer for args in cwd only
func (r *Runner) SetIn(cwd, out string, args ...string) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.perCwd[cwdKey(cwd, args)] = response{out: out}
	return r
}

// Fail scripts a failure for args in any cwd
func (r *Runner) Fail(args ...string) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anyCwd[key(args)] = response{err: fmt.Errorf("git %s: exit status 1", strings.Join(args, " "))}
	return r
}

// Delay makes an already scripted command (any cwd) take d before answering
func (r *Runner) Delay(d time.Duration, args ...string) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp := r.anyCwd[key(args)]
	resp.delay = d
	r.anyCwd[key(args)] = resp
	return r
}

// Run implements ports.CommandRunner
func (r *Runner) Run(ctx context.Context, cwd string, args ...string) (string, error) {
	k := key(args)

	r.mu.Lock()
	r.calls = append(r.calls, Call{Args: append([]string(nil), args...), Cwd: cwd})
	resp, ok := r.perCwd[cwdKey(cwd, args)]
	if !ok {
		resp, ok = r.anyCwd[k]
	}
	r.active[k]++
	if r.active[k] > r.maxActive[k] {
		r.maxActive[k] = r.active[k]
	}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.active[k]--
		r.mu.Unlock()
	}()

	if !ok {
		return "", fmt.Errorf("%w: %s (cwd %s)", ErrUnscripted, k, cwd)
	}

	if resp.delay > 0 {
		select {
		case <-time.After(resp.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return resp.out, resp.err
}

// Count returns how many times args were run, in any cwd
func (r *Runner) Count(args ...string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(args)
	n := 0
	for _, c := range r.calls {
		if key(c.Args) == k {
			n++
		}
	}
	return n
}

// CountPrefix returns how many calls started with the given args
func (r *Runner) CountPrefix(prefix ...string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, c := range r.calls {
		if len(c.Args) < len(prefix) {
			continue
		}
		if key(c.Args[:len(prefix)]) == key(prefix) {
			n++
		}
	}
	return n
}

// MaxConcurrent returns the highest number of simultaneous runs seen for args
func (r *Runner) MaxConcurrent(args ...string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxActive[key(args)]
}

// Calls returns a copy of every recorded call
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

func key(args []string) string {
	return strings.Join(args, "\x1f")
}

func cwdKey(cwd string, args []string) string {
	return cwd + "\x1e" + key(args)
}
