package storage

import "time"

// Sample kinds
const (
	KindLocal    = "local"
	KindWorktree = "worktree"
)

// StatsSampleModel is the GORM model for the stats_samples table.
// One row per emitted entity: a worktree of a batch or the local branch.
type StatsSampleModel struct {
	Additions  int       `gorm:"not null;default:0"`
	Branch     string    `gorm:"not null;default:''"`
	Commits    int       `gorm:"not null;default:0"`
	Deletions  int       `gorm:"not null;default:0"`
	ID         string    `gorm:"primaryKey"`
	Kind       string    `gorm:"not null;check:kind IN ('local','worktree')"`
	RecordedAt time.Time `gorm:"not null;index:idx_recorded_at"`
	WorktreeID string    `gorm:"not null;default:'';index:idx_worktree_id"`
}

// TableName specifies the table name for GORM
func (StatsSampleModel) TableName() string { return "stats_samples" }
