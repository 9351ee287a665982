package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	adaptergit "wtpulse/internal/adapters/git"
	adapterstorage "wtpulse/internal/adapters/storage"
	adapterwatcher "wtpulse/internal/adapters/watcher"
	"wtpulse/internal/config"
	"wtpulse/internal/domain"
	"wtpulse/internal/logging"
	"wtpulse/internal/ports"
	"wtpulse/internal/services"
)

// rootLookupTimeout bounds the initial `git rev-parse --show-toplevel`
const rootLookupTimeout = 5 * time.Second

// ContainerOptions carries the resolved CLI and settings values
type ContainerOptions struct {
	Debug          bool
	Dir            string
	GitBin         string
	Interval       time.Duration
	MaxConcurrency int
	ParentBranch   string
	Refresh        time.Duration
}

// Container holds all dependencies for the application
type Container struct {
	// Adapters
	DiffFactory *adaptergit.DiffClientFactory
	Lister      *adaptergit.WorktreeLister
	Runner      *adaptergit.ExecRunner

	// Services
	Poller   *services.WorkspacePoller
	Resolver *services.RemoteResolver

	// Root is the workspace root, empty when Dir is not inside a repository
	Root    string
	RootErr error

	opts ContainerOptions

	// Internal - for cleanup only
	historyMu   sync.Mutex
	history     ports.StatsHistory
	historySvc  *services.HistoryService
	stopLister  context.CancelFunc
	stopWatcher func()
}

// NewContainer creates a new Container with all dependencies wired.
// A directory outside any repository is not an error: the local poller
// skips every tick and RootErr says why.
func NewContainer(opts ContainerOptions) (*Container, error) {
	if opts.Interval <= 0 {
		opts.Interval = services.DefaultPollInterval
	}
	runner := adaptergit.NewExecRunner(opts.GitBin)

	ctx, cancel := context.WithTimeout(context.Background(), rootLookupTimeout)
	defer cancel()

	root, rootErr := adaptergit.FindRepoRoot(ctx, runner, opts.Dir)
	if rootErr != nil {
		logging.Logger.Warn("Workspace root unknown", "dir", opts.Dir, "error", rootErr)
	}

	lister := adaptergit.NewWorktreeLister(runner, root, opts.ParentBranch)
	diffFactory := adaptergit.NewDiffClientFactory(runner)
	resolver := services.NewRemoteResolver(runner, opts.Refresh, logging.Logger)

	poller := services.NewWorkspacePoller(
		lister,
		ports.StaticRoot(root),
		diffFactory,
		resolver,
		services.PollerOptions{
			Interval:       opts.Interval,
			Logger:         logging.Logger,
			MaxConcurrency: opts.MaxConcurrency,
		},
	)

	return &Container{
		DiffFactory: diffFactory,
		Lister:      lister,
		Poller:      poller,
		Resolver:    resolver,
		Root:        root,
		RootErr:     rootErr,
		Runner:      runner,
		opts:        opts,
	}, nil
}

// Start refreshes the worktree list in the background and starts polling
func (c *Container) Start(ctx context.Context) {
	if c.Root != "" {
		// First snapshot before the first tick so worktrees show up immediately
		if err := c.Lister.Refresh(ctx); err != nil {
			logging.Logger.Warn("Failed to list worktrees", "root", c.Root, "error", err)
		}
		listerCtx, cancel := context.WithCancel(ctx)
		c.stopLister = cancel
		go c.Lister.Run(listerCtx, c.opts.Interval)
	}
	c.Poller.Start(ctx)
}

// HistoryService opens the history database on first use
func (c *Container) HistoryService() (*services.HistoryService, error) {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()

	if c.historySvc != nil {
		return c.historySvc, nil
	}

	repo, err := adapterstorage.NewHistoryRepository(config.GetHistoryPath(), c.opts.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats history: %w", err)
	}
	c.history = repo
	c.historySvc = services.NewHistoryService(repo, logging.Logger)
	return c.historySvc, nil
}

// RecordHistory stores every emission until the returned func is called
func (c *Container) RecordHistory() (func(), error) {
	svc, err := c.HistoryService()
	if err != nil {
		return nil, err
	}
	return svc.Attach(c.Poller), nil
}

// WatchFiles requests an early tick whenever files under the workspace or a
// worktree change. The watched set follows the worktree list.
func (c *Container) WatchFiles(ctx context.Context) error {
	if c.Root == "" {
		return nil
	}

	w, err := adapterwatcher.New(c.Poller.TriggerNow, adapterwatcher.DefaultDebounce, logging.Logger)
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	syncRoots := func() {
		paths := []string{c.Root}
		for _, wt := range c.Lister.Worktrees() {
			paths = append(paths, wt.Path)
		}
		w.Sync(paths)
	}
	syncRoots()

	watchCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(c.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-watchCtx.Done():
				return
			case <-ticker.C:
				syncRoots()
			}
		}
	}()

	c.stopWatcher = func() {
		cancel()
		if err := w.Close(); err != nil {
			logging.Logger.Warn("Failed to close file watcher", "error", err)
		}
	}
	return nil
}

// Close stops polling and closes all resources held by the container
func (c *Container) Close() error {
	if c.stopWatcher != nil {
		c.stopWatcher()
	}
	if c.stopLister != nil {
		c.stopLister()
	}
	c.Poller.Stop()

	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	if c.history != nil {
		return c.history.Close()
	}
	return nil
}

// requireRoot fails when the workspace root could not be resolved
func (c *Container) requireRoot() error {
	if c.Root != "" {
		return nil
	}
	if c.RootErr != nil {
		return c.RootErr
	}
	return domain.ErrNoWorkspaceRoot
}
