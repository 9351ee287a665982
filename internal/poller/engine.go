// Package poller runs periodic, single-flight measurement rounds over a
// changing set of entities and notifies subscribers only when results change.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"wtpulse/internal/logging"
)

// DefaultInterval is the tick period used when Config.Interval is not positive
const DefaultInterval = 5 * time.Second

// Round is the work of one tick: the entities to measure and how to measure one
type Round[E, R any] struct {
	Entities []E
	Measure  func(ctx context.Context, entity E) (R, error)
}

// Config parameterizes an Engine
type Config[E, R any] struct {
	// Name identifies the engine in logs
	Name     string
	Interval time.Duration

	// Plan prepares the round. Returning false skips the tick without touching caches.
	Plan func(ctx context.Context) (Round[E, R], bool)

	// Key identifies an entity; ResultKey must return the same key for its result.
	Key       func(E) string
	ResultKey func(R) string

	// Encode renders one result as a fingerprint tuple
	Encode func(R) string

	// Fallback is consulted when measuring fails and no last-known value exists.
	// Returning false drops the entity from the batch.
	Fallback func(entity E, err error) (R, bool)

	// MaxConcurrency bounds per-tick measurements; zero or less means unbounded
	MaxConcurrency int

	Logger *slog.Logger
}

// Engine runs ticks on a fixed interval, never more than one at a time.
// The next tick is scheduled only after the previous one completed.
type Engine[E, R any] struct {
	busy    atomic.Bool
	cfg     Config[E, R]
	logger  *slog.Logger
	trigger chan struct{}

	// deliverMu is held while subscribers run; Stop takes it so no batch
	// reaches a subscriber after Stop returns
	deliverMu sync.Mutex

	mu          sync.Mutex
	cancel      context.CancelFunc
	enabled     bool
	fingerprint string
	generation  uint64
	lastBatch   []R
	lastKnown   map[string]R
	nextSubID   uint64
	subscribers []subscriber[R]
}

// New creates a stopped Engine. Plan, Key, ResultKey and Encode are required.
func New[E, R any](cfg Config[E, R]) *Engine[E, R] {
	if cfg.Plan == nil || cfg.Key == nil || cfg.ResultKey == nil || cfg.Encode == nil {
		panic("poller: Plan, Key, ResultKey and Encode are required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Logger
	}

	return &Engine[E, R]{
		cfg:       cfg,
		lastKnown: make(map[string]R),
		logger:    logger.With("poller", cfg.Name),
		trigger:   make(chan struct{}, 1),
	}
}

// Start enables the engine and runs the first tick immediately.
// The engine stops when ctx is done or Stop is called. Starting twice is a no-op.
func (e *Engine[E, R]) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.enabled {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.enabled = true

	e.logger.Debug("Poller started", "interval", e.cfg.Interval)
	go e.loop(runCtx, e.generation)
}

// SetEnabled starts or stops the engine
func (e *Engine[E, R]) SetEnabled(enabled bool) {
	if enabled {
		e.Start(context.Background())
		return
	}
	e.Stop()
}

// Stop prevents further ticks and clears every cache. A tick already running
// finishes but its results are discarded. Waits for a delivery in progress,
// so it must not be called from a subscriber. Safe to call repeatedly.
func (e *Engine[E, R]) Stop() {
	e.deliverMu.Lock()
	defer e.deliverMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.enabled {
		e.cancel()
		e.cancel = nil
		e.enabled = false
		e.logger.Debug("Poller stopped")
	}

	e.generation++
	e.busy.Store(false)
	e.fingerprint = ""
	e.lastBatch = nil
	clear(e.lastKnown)

	// Drop a pending trigger so a restart begins with a clean wait
	select {
	case <-e.trigger:
	default:
	}
}

// Enabled reports whether the engine is running
func (e *Engine[E, R]) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// TriggerNow asks a running engine to tick without waiting for the interval.
// Requests made while a tick runs collapse into one follow-up tick.
func (e *Engine[E, R]) TriggerNow() {
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

// RunOnce runs one tick synchronously. It returns false when a tick was already running.
func (e *Engine[E, R]) RunOnce(ctx context.Context) bool {
	e.mu.Lock()
	gen := e.generation
	e.mu.Unlock()

	return e.tick(ctx, gen)
}

// Last returns the most recently emitted batch, or nil
func (e *Engine[E, R]) Last() []R {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastBatch == nil {
		return nil
	}
	return append([]R(nil), e.lastBatch...)
}

func (e *Engine[E, R]) loop(ctx context.Context, gen uint64) {
	defer e.exited(gen)

	for {
		e.tick(ctx, gen)

		timer := time.NewTimer(e.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		case <-e.trigger:
			timer.Stop()
		}

		if ctx.Err() != nil {
			return
		}
	}
}

// exited marks the engine stopped when its context ended without Stop.
// Caches are kept; a later Start resumes from them.
func (e *Engine[E, R]) exited(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation != gen || !e.enabled {
		return
	}
	e.cancel()
	e.cancel = nil
	e.enabled = false
	e.logger.Debug("Poller context done")
}

// tick runs one round. gen is the generation the caller belongs to; results
// are only delivered while it is still current.
func (e *Engine[E, R]) tick(ctx context.Context, gen uint64) bool {
	if !e.busy.CompareAndSwap(false, true) {
		e.logger.Debug("Tick skipped, previous tick still running")
		return false
	}
	defer e.release(gen)

	if !e.current(gen) {
		return true
	}

	round, ok := e.cfg.Plan(ctx)
	if !ok {
		return true
	}

	e.prune(gen, round.Entities)

	batch := e.measure(ctx, gen, round)
	if len(batch) == 0 {
		return true
	}

	e.deliver(gen, batch)
	return true
}

// release clears the busy flag unless Stop already did so for a newer run
func (e *Engine[E, R]) release(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation == gen {
		e.busy.Store(false)
	}
}

func (e *Engine[E, R]) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation == gen
}

// prune forgets last-known values of entities that left the round
func (e *Engine[E, R]) prune(gen uint64, entities []E) {
	keep := make(map[string]struct{}, len(entities))
	for _, entity := range entities {
		keep[e.cfg.Key(entity)] = struct{}{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation != gen {
		return
	}
	for key := range e.lastKnown {
		if _, ok := keep[key]; !ok {
			delete(e.lastKnown, key)
		}
	}
}

type slot[R any] struct {
	ok     bool
	result R
}

// measure fans out over the entities. A failure only affects its own entity.
func (e *Engine[E, R]) measure(ctx context.Context, gen uint64, round Round[E, R]) []R {
	slots := make([]slot[R], len(round.Entities))

	var g errgroup.Group
	if e.cfg.MaxConcurrency > 0 {
		g.SetLimit(e.cfg.MaxConcurrency)
	}

	for i, entity := range round.Entities {
		g.Go(func() error {
			result, err := round.Measure(ctx, entity)
			if err == nil {
				slots[i] = slot[R]{ok: true, result: result}
				return nil
			}
			slots[i] = e.substitute(gen, entity, err)
			return nil
		})
	}
	_ = g.Wait()

	batch := make([]R, 0, len(slots))
	for _, s := range slots {
		if s.ok {
			batch = append(batch, s.result)
		}
	}
	return batch
}

// substitute picks the value reported for an entity whose measurement failed
func (e *Engine[E, R]) substitute(gen uint64, entity E, err error) slot[R] {
	key := e.cfg.Key(entity)

	e.mu.Lock()
	prev, known := e.lastKnown[key]
	stale := e.generation != gen
	e.mu.Unlock()

	if known && !stale {
		e.logger.Debug("Measurement failed, keeping last known value", "key", key, "error", err)
		return slot[R]{ok: true, result: prev}
	}

	if e.cfg.Fallback != nil {
		if result, ok := e.cfg.Fallback(entity, err); ok {
			e.logger.Debug("Measurement failed, using fallback", "key", key, "error", err)
			return slot[R]{ok: true, result: result}
		}
	}

	e.logger.Debug("Measurement failed, dropping entity", "key", key, "error", err)
	return slot[R]{}
}

// deliver notifies subscribers unless the batch matches the previous emission
func (e *Engine[E, R]) deliver(gen uint64, batch []R) {
	fp := fingerprint(batch, e.cfg.Encode)

	e.deliverMu.Lock()
	defer e.deliverMu.Unlock()

	e.mu.Lock()
	if e.generation != gen {
		e.mu.Unlock()
		e.logger.Debug("Discarding results of a stopped run")
		return
	}
	if fp == e.fingerprint {
		e.mu.Unlock()
		return
	}

	for _, result := range batch {
		e.lastKnown[e.cfg.ResultKey(result)] = result
	}
	e.fingerprint = fp
	e.lastBatch = batch

	subscribers := append([]subscriber[R](nil), e.subscribers...)
	e.mu.Unlock()

	e.logger.Debug("Emitting results", "count", len(batch), "fingerprint", fp)
	for _, sub := range subscribers {
		sub.fn(append([]R(nil), batch...))
	}
}
