package storage

import (
	"time"

	"github.com/google/uuid"

	"wtpulse/internal/domain"
	"wtpulse/internal/ports"
)

// sampleModelToEntry converts a StatsSampleModel (GORM) to ports.HistoryEntry
func sampleModelToEntry(m StatsSampleModel) ports.HistoryEntry {
	return ports.HistoryEntry{
		Additions:  m.Additions,
		Branch:     m.Branch,
		Commits:    m.Commits,
		Deletions:  m.Deletions,
		ID:         m.ID,
		Kind:       m.Kind,
		RecordedAt: m.RecordedAt,
		WorktreeID: m.WorktreeID,
	}
}

// localStatsToModel converts domain.LocalStats to a StatsSampleModel row
func localStatsToModel(s domain.LocalStats, at time.Time) StatsSampleModel {
	return StatsSampleModel{
		Additions:  s.Additions,
		Branch:     s.Branch,
		Commits:    s.Commits,
		Deletions:  s.Deletions,
		ID:         uuid.NewString(),
		Kind:       KindLocal,
		RecordedAt: at,
	}
}

// worktreeStatsToModel converts domain.WorktreeStats to a StatsSampleModel row
func worktreeStatsToModel(s domain.WorktreeStats, at time.Time) StatsSampleModel {
	return StatsSampleModel{
		Additions:  s.Additions,
		Commits:    s.Commits,
		Deletions:  s.Deletions,
		ID:         uuid.NewString(),
		Kind:       KindWorktree,
		RecordedAt: at,
		WorktreeID: s.WorktreeID,
	}
}
