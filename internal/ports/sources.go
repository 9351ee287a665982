package ports

import "wtpulse/internal/domain"

// WorktreeSource returns the live worktree list. Called every tick, must not block.
type WorktreeSource interface {
	Worktrees() []domain.Worktree
}

// WorkspaceRootSource returns the workspace root, if known
type WorkspaceRootSource interface {
	WorkspaceRoot() (string, bool)
}

// WorktreeSourceFunc adapts a plain function to WorktreeSource
type WorktreeSourceFunc func() []domain.Worktree

// Worktrees implements WorktreeSource
func (f WorktreeSourceFunc) Worktrees() []domain.Worktree {
	return f()
}

// StaticRoot is a WorkspaceRootSource with a fixed root. Empty means unknown.
type StaticRoot string

// WorkspaceRoot implements WorkspaceRootSource
func (r StaticRoot) WorkspaceRoot() (string, bool) {
	return string(r), r != ""
}
