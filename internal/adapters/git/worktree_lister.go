package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"wtpulse/internal/domain"
	"wtpulse/internal/logging"
	"wtpulse/internal/ports"
)

// fallbackParentBranch is used when neither settings nor origin/HEAD name one
const fallbackParentBranch = "main"

// WorktreeLister keeps a snapshot of the secondary worktrees of a repository.
// Worktrees() never blocks; Refresh/Run update the snapshot from git.
type WorktreeLister struct {
	mu           sync.RWMutex
	parentBranch string
	root         string
	runner       ports.CommandRunner
	snapshot     []domain.Worktree
}

// Verify interface compliance at compile time
var _ ports.WorktreeSource = (*WorktreeLister)(nil)

// NewWorktreeLister creates a lister for the repository at root.
// parentBranch is the diff base for every worktree; empty means detect from origin/HEAD.
func NewWorktreeLister(runner ports.CommandRunner, root, parentBranch string) *WorktreeLister {
	return &WorktreeLister{
		parentBranch: strings.TrimSpace(parentBranch),
		root:         root,
		runner:       runner,
	}
}

// Worktrees implements ports.WorktreeSource
func (l *WorktreeLister) Worktrees() []domain.Worktree {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Worktree, len(l.snapshot))
	copy(out, l.snapshot)
	return out
}

// Refresh re-reads `git worktree list` and replaces the snapshot.
// On failure the previous snapshot is kept.
func (l *WorktreeLister) Refresh(ctx context.Context) error {
	output, err := l.runner.Run(ctx, l.root, "worktree", "list", "--porcelain")
	if err != nil {
		return fmt.Errorf("failed to list worktrees: %w", err)
	}

	parent := l.resolveParentBranch(ctx)
	entries := parseWorktreeList(output)

	worktrees := make([]domain.Worktree, 0, len(entries))
	for i, entry := range entries {
		// First entry is the main worktree, which the local poller covers
		if i == 0 || entry.bare || entry.path == "" {
			continue
		}
		worktrees = append(worktrees, domain.Worktree{
			Branch:       entry.branch,
			CreatedAt:    createdAt(entry.path),
			ID:           WorktreeID(entry.path),
			ParentBranch: parent,
			Path:         entry.path,
		})
	}

	l.mu.Lock()
	l.snapshot = worktrees
	l.mu.Unlock()

	logging.Logger.Debug("Worktree snapshot refreshed", "root", l.root, "count", len(worktrees))
	return nil
}

// Run refreshes the snapshot every interval until ctx is done. It does not
// refresh on entry; callers take the first snapshot with Refresh.
func (l *WorktreeLister) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.Refresh(ctx); err != nil {
				logging.Logger.Warn("Failed to list worktrees", "root", l.root, "error", err)
			}
		}
	}
}

// resolveParentBranch returns the configured parent branch or the branch origin/HEAD points to
func (l *WorktreeLister) resolveParentBranch(ctx context.Context) string {
	if l.parentBranch != "" {
		return l.parentBranch
	}

	ref, err := l.runner.Run(ctx, l.root, "symbolic-ref", "--short", "refs/remotes/origin/HEAD")
	if err != nil || ref == "" {
		return fallbackParentBranch
	}
	if idx := strings.Index(ref, "/"); idx >= 0 {
		return ref[idx+1:]
	}
	return ref
}

// WorktreeID derives a stable identifier from the worktree path
func WorktreeID(path string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.Clean(path))).String()
}

// createdAt approximates worktree creation time with the mtime of its .git file
func createdAt(path string) time.Time {
	info, err := os.Stat(filepath.Join(path, ".git"))
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

type worktreeEntry struct {
	bare   bool
	branch string
	path   string
}

// parseWorktreeList parses `git worktree list --porcelain` output.
// Records are separated by blank lines and start with "worktree <path>".
func parseWorktreeList(output string) []worktreeEntry {
	var entries []worktreeEntry
	var current *worktreeEntry

	flush := func() {
		if current != nil {
			entries = append(entries, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			flush()
			current = &worktreeEntry{path: strings.TrimPrefix(line, "worktree ")}
		case current == nil:
			continue
		case strings.HasPrefix(line, "branch "):
			current.branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		case line == "detached":
			current.branch = domain.DetachedHead
		case line == "bare":
			current.bare = true
		}
	}
	flush()

	return entries
}

// FindRepoRoot returns the toplevel of the work tree containing dir
func FindRepoRoot(ctx context.Context, runner ports.CommandRunner, dir string) (string, error) {
	root, err := runner.Run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrNotGitRepo, dir, err)
	}
	return root, nil
}
