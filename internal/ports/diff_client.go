package ports

import (
	"context"

	"wtpulse/internal/domain"
)

// DiffClient reports per-file line changes of a worktree against a base branch
type DiffClient interface {
	WorktreeDiff(ctx context.Context, path, baseBranch string) ([]domain.FileDiff, error)
}

// DiffClientFactory hands out the DiffClient for one tick.
// It fails when no client is available (not yet connected, binary missing...).
type DiffClientFactory interface {
	DiffClient() (DiffClient, error)
}

// DiffClientFactoryFunc adapts a plain function to DiffClientFactory
type DiffClientFactoryFunc func() (DiffClient, error)

// DiffClient implements DiffClientFactory
func (f DiffClientFactoryFunc) DiffClient() (DiffClient, error) {
	return f()
}
