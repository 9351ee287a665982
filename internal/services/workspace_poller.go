package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"wtpulse/internal/domain"
	"wtpulse/internal/poller"
	"wtpulse/internal/ports"
)

// localTarget is the single entity of a local tick
type localTarget struct {
	branch   string
	client   ports.DiffClient // nil when the factory failed this tick
	root     string
	tracking string
}

// WorkspacePoller polls the worktree pool and the workspace's own branch.
// Both share one RemoteResolver, so a fetch of a remote is never repeated
// across the two within a throttle window.
type WorkspacePoller struct {
	factory   ports.DiffClientFactory
	local     *poller.Engine[localTarget, domain.LocalStats]
	logger    *slog.Logger
	resolver  *RemoteResolver
	roots     ports.WorkspaceRootSource
	worktrees *StatsPoller
}

// NewWorkspacePoller creates a stopped WorkspacePoller
func NewWorkspacePoller(
	source ports.WorktreeSource,
	roots ports.WorkspaceRootSource,
	factory ports.DiffClientFactory,
	resolver *RemoteResolver,
	opts PollerOptions,
) *WorkspacePoller {
	p := &WorkspacePoller{
		factory:   factory,
		logger:    opts.logger(),
		resolver:  resolver,
		roots:     roots,
		worktrees: NewStatsPoller(source, factory, resolver, opts),
	}

	p.local = poller.New(poller.Config[localTarget, domain.LocalStats]{
		Encode:    encodeLocalStats,
		Fallback:  zeroWhenClientMissing,
		Interval:  opts.Interval,
		Key:       func(t localTarget) string { return t.branch },
		Logger:    p.logger,
		Name:      "local",
		Plan:      p.planLocal,
		ResultKey: func(s domain.LocalStats) string { return s.Branch },
	})
	return p
}

// Start begins polling worktrees and the local branch
func (p *WorkspacePoller) Start(ctx context.Context) {
	p.worktrees.Start(ctx)
	p.local.Start(ctx)
}

// SetEnabled starts or stops both pollers
func (p *WorkspacePoller) SetEnabled(enabled bool) {
	if !enabled {
		p.Stop()
		return
	}
	p.worktrees.SetEnabled(true)
	p.local.SetEnabled(true)
}

// Stop halts both pollers and clears every cache. Safe to call repeatedly.
func (p *WorkspacePoller) Stop() {
	p.worktrees.Stop()
	p.local.Stop()
}

// TriggerNow requests an early tick of both pollers
func (p *WorkspacePoller) TriggerNow() {
	p.worktrees.TriggerNow()
	p.local.TriggerNow()
}

// RunLocalOnce runs one local tick synchronously
func (p *WorkspacePoller) RunLocalOnce(ctx context.Context) bool {
	return p.local.RunOnce(ctx)
}

// RunOnce runs one tick of both pollers synchronously
func (p *WorkspacePoller) RunOnce(ctx context.Context) {
	p.worktrees.RunOnce(ctx)
	p.local.RunOnce(ctx)
}

// OnStats registers fn for changed worktree batches
func (p *WorkspacePoller) OnStats(fn func([]domain.WorktreeStats)) func() {
	return p.worktrees.OnStats(fn)
}

// OnLocalStats registers fn for changed local branch stats
func (p *WorkspacePoller) OnLocalStats(fn func(domain.LocalStats)) func() {
	return p.local.Subscribe(func(batch []domain.LocalStats) {
		for _, s := range batch {
			fn(s)
		}
	})
}

// Updates streams changed worktree batches to a possibly slow consumer
func (p *WorkspacePoller) Updates(buffer int) (<-chan []domain.WorktreeStats, func()) {
	return p.worktrees.Updates(buffer)
}

// LocalUpdates streams changed local branch stats to a possibly slow consumer
func (p *WorkspacePoller) LocalUpdates(buffer int) (<-chan []domain.LocalStats, func()) {
	return p.local.Updates(buffer)
}

// Enabled reports whether the pollers are running
func (p *WorkspacePoller) Enabled() bool {
	return p.local.Enabled()
}

// LastStats returns the most recently emitted worktree batch
func (p *WorkspacePoller) LastStats() []domain.WorktreeStats {
	return p.worktrees.Last()
}

// LastLocalStats returns the most recently emitted local stats
func (p *WorkspacePoller) LastLocalStats() (domain.LocalStats, bool) {
	batch := p.local.Last()
	if len(batch) == 0 {
		return domain.LocalStats{}, false
	}
	return batch[0], true
}

func (p *WorkspacePoller) planLocal(ctx context.Context) (poller.Round[localTarget, domain.LocalStats], bool) {
	root, ok := p.roots.WorkspaceRoot()
	if !ok || root == "" {
		return poller.Round[localTarget, domain.LocalStats]{}, false
	}

	branch := p.resolver.CurrentBranch(ctx, root)
	if !isNamedBranch(branch) {
		return poller.Round[localTarget, domain.LocalStats]{}, false
	}

	target := localTarget{branch: branch, root: root}
	target.tracking, _ = p.resolver.ResolveTrackingBranch(ctx, root, branch)

	client, err := p.factory.DiffClient()
	if err != nil {
		p.logger.Debug("No diff client for local branch", "branch", branch, "error", err)
	} else {
		target.client = client
	}

	return poller.Round[localTarget, domain.LocalStats]{
		Entities: []localTarget{target},
		Measure:  p.measureLocal,
	}, true
}

func (p *WorkspacePoller) measureLocal(ctx context.Context, t localTarget) (domain.LocalStats, error) {
	if t.client == nil {
		return domain.LocalStats{}, domain.ErrDiffClientUnavailable
	}

	base := t.tracking
	if base == "" {
		defaultBranch, ok := p.resolver.ResolveDefaultBranch(ctx, t.root, t.branch)
		if !ok {
			// Nothing to compare against
			return domain.LocalStats{Branch: t.branch}, nil
		}
		base = defaultBranch
	}

	additions, deletions, commits, err := measureBranch(ctx, t.client, p.resolver, t.root, base)
	if err != nil {
		return domain.LocalStats{}, fmt.Errorf("branch %s: %w", t.branch, err)
	}

	return domain.LocalStats{
		Additions: additions,
		Branch:    t.branch,
		Commits:   commits,
		Deletions: deletions,
	}, nil
}

// zeroWhenClientMissing reports zeros for a branch never measured when the
// diff client is missing. Other errors drop the branch for this tick.
func zeroWhenClientMissing(t localTarget, err error) (domain.LocalStats, bool) {
	if errors.Is(err, domain.ErrDiffClientUnavailable) {
		return domain.LocalStats{Branch: t.branch}, true
	}
	return domain.LocalStats{}, false
}

func encodeLocalStats(s domain.LocalStats) string {
	return s.Branch + ":" + strconv.Itoa(s.Additions) + ":" + strconv.Itoa(s.Deletions) + ":" + strconv.Itoa(s.Commits)
}
