package ports

import (
	"context"
	"time"

	"wtpulse/internal/domain"
)

// HistoryEntry is one recorded emission row
type HistoryEntry struct {
	Additions  int
	Branch     string
	Commits    int
	Deletions  int
	ID         string
	Kind       string // "worktree" or "local"
	RecordedAt time.Time
	WorktreeID string
}

// HistoryFilter narrows history queries
type HistoryFilter struct {
	Limit      int
	WorktreeID string
}

// StatsRecorder persists emitted stats
type StatsRecorder interface {
	RecordLocal(ctx context.Context, stats domain.LocalStats) error
	RecordWorktrees(ctx context.Context, stats []domain.WorktreeStats) error
}

// StatsHistoryReader reads recorded stats
type StatsHistoryReader interface {
	List(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error)
}

// StatsHistoryPruner removes old recorded stats
type StatsHistoryPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// StatsHistory is the composite interface
type StatsHistory interface {
	StatsHistoryPruner
	StatsHistoryReader
	StatsRecorder
	Close() error
}
