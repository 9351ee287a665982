package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"wtpulse/internal/domain"
	"wtpulse/internal/logging"
	"wtpulse/internal/poller"
	"wtpulse/internal/ports"
)

// DefaultPollInterval is the tick period of both pollers
const DefaultPollInterval = poller.DefaultInterval

// PollerOptions configures StatsPoller and WorkspacePoller
type PollerOptions struct {
	Interval       time.Duration
	Logger         *slog.Logger
	MaxConcurrency int // Per-tick limit on worktrees measured at once, 0 = unlimited
}

func (o PollerOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return logging.Logger
	}
	return o.Logger
}

// StatsPoller periodically measures line changes and commits ahead for every
// worktree of a WorktreeSource
type StatsPoller struct {
	engine   *poller.Engine[domain.Worktree, domain.WorktreeStats]
	factory  ports.DiffClientFactory
	logger   *slog.Logger
	resolver *RemoteResolver
	source   ports.WorktreeSource
}

// NewStatsPoller creates a stopped StatsPoller
func NewStatsPoller(
	source ports.WorktreeSource,
	factory ports.DiffClientFactory,
	resolver *RemoteResolver,
	opts PollerOptions,
) *StatsPoller {
	p := &StatsPoller{
		factory:  factory,
		logger:   opts.logger(),
		resolver: resolver,
		source:   source,
	}

	p.engine = poller.New(poller.Config[domain.Worktree, domain.WorktreeStats]{
		Encode:         encodeWorktreeStats,
		Interval:       opts.Interval,
		Key:            func(wt domain.Worktree) string { return wt.ID },
		Logger:         p.logger,
		MaxConcurrency: opts.MaxConcurrency,
		Name:           "worktrees",
		Plan:           p.plan,
		ResultKey:      func(s domain.WorktreeStats) string { return s.WorktreeID },
	})
	return p
}

// Start begins polling; the first tick runs immediately
func (p *StatsPoller) Start(ctx context.Context) {
	p.engine.Start(ctx)
}

// SetEnabled starts or stops polling
func (p *StatsPoller) SetEnabled(enabled bool) {
	if !enabled {
		p.Stop()
		return
	}
	p.engine.SetEnabled(true)
}

// Stop halts polling and forgets cached stats and fetch timestamps
func (p *StatsPoller) Stop() {
	p.engine.Stop()
	p.resolver.ResetFetchState()
}

// TriggerNow requests an early tick
func (p *StatsPoller) TriggerNow() {
	p.engine.TriggerNow()
}

// RunOnce runs one tick synchronously
func (p *StatsPoller) RunOnce(ctx context.Context) bool {
	return p.engine.RunOnce(ctx)
}

// OnStats registers fn for every changed batch; the result unregisters it
func (p *StatsPoller) OnStats(fn func([]domain.WorktreeStats)) func() {
	return p.engine.Subscribe(fn)
}

// Updates returns a channel of changed batches and a func that closes it
func (p *StatsPoller) Updates(buffer int) (<-chan []domain.WorktreeStats, func()) {
	return p.engine.Updates(buffer)
}

// Last returns the most recently emitted batch
func (p *StatsPoller) Last() []domain.WorktreeStats {
	return p.engine.Last()
}

func (p *StatsPoller) plan(ctx context.Context) (poller.Round[domain.Worktree, domain.WorktreeStats], bool) {
	worktrees := p.source.Worktrees()
	if len(worktrees) == 0 {
		return poller.Round[domain.Worktree, domain.WorktreeStats]{}, false
	}

	client, err := p.factory.DiffClient()
	if err != nil {
		p.logger.Debug("Skipping worktree tick, no diff client", "error", err)
		return poller.Round[domain.Worktree, domain.WorktreeStats]{}, false
	}

	return poller.Round[domain.Worktree, domain.WorktreeStats]{
		Entities: worktrees,
		Measure: func(ctx context.Context, wt domain.Worktree) (domain.WorktreeStats, error) {
			additions, deletions, commits, err := measureBranch(ctx, client, p.resolver, wt.Path, wt.ParentBranch)
			if err != nil {
				return domain.WorktreeStats{}, fmt.Errorf("worktree %s: %w", wt.Path, err)
			}
			return domain.WorktreeStats{
				Additions:  additions,
				Commits:    commits,
				Deletions:  deletions,
				WorktreeID: wt.ID,
			}, nil
		},
	}, true
}

// measureBranch runs the diff and the ahead-count for path concurrently.
// Only the diff can fail; the ahead-count falls back to 0 by itself.
func measureBranch(
	ctx context.Context,
	client ports.DiffClient,
	resolver *RemoteResolver,
	path, base string,
) (additions, deletions, commits int, err error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		files, err := client.WorktreeDiff(gctx, path, base)
		if err != nil {
			return err
		}
		additions, deletions = domain.SumDiff(files)
		return nil
	})

	g.Go(func() error {
		commits = resolver.CountMissingOriginCommits(gctx, path, base)
		return nil
	})

	if err := g.Wait(); err != nil {
		return 0, 0, 0, err
	}
	return additions, deletions, commits, nil
}

func encodeWorktreeStats(s domain.WorktreeStats) string {
	return s.WorktreeID + ":" + strconv.Itoa(s.Additions) + ":" + strconv.Itoa(s.Deletions) + ":" + strconv.Itoa(s.Commits)
}
