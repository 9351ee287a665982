package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"wtpulse/internal/domain"
	"wtpulse/internal/ports"
)

// DefaultHistoryLimit caps List when the filter sets no limit
const DefaultHistoryLimit = 50

const maxRetries = 3

// HistoryRepository implements ports.StatsHistory on SQLite using GORM
type HistoryRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// Verify interface compliance at compile time
var _ ports.StatsHistory = (*HistoryRepository)(nil)

// NewHistoryRepository opens (and creates if needed) the history database at dbPath
func NewHistoryRepository(dbPath string, debug bool) (*HistoryRepository, error) {
	// Expand home directory if present
	if len(dbPath) > 0 && dbPath[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(homeDir, dbPath[1:])
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:      newGormLogger(debug),
		NowFunc:     func() time.Time { return time.Now().UTC() },
		PrepareStmt: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets `wtpulse history` read while a poller writes
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	db.Exec("PRAGMA synchronous=NORMAL")

	if err := db.AutoMigrate(&StatsSampleModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate stats history schema: %w", err)
	}

	return &HistoryRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// NewHistoryRepositoryForPath opens history.db inside a WTPULSE_HOME directory
func NewHistoryRepositoryForPath(homePath string, debug bool) (*HistoryRepository, error) {
	return NewHistoryRepository(filepath.Join(homePath, "history.db"), debug)
}

// Close closes the database connection
func (r *HistoryRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordLocal implements ports.StatsRecorder.RecordLocal
func (r *HistoryRepository) RecordLocal(ctx context.Context, stats domain.LocalStats) error {
	row := localStatsToModel(stats, r.now())
	return withRetry(func() error {
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to record local stats for %s: %w", stats.Branch, err)
		}
		return nil
	}, maxRetries)
}

// RecordWorktrees implements ports.StatsRecorder.RecordWorktrees.
// The whole batch shares one timestamp and is written in one transaction.
func (r *HistoryRepository) RecordWorktrees(ctx context.Context, stats []domain.WorktreeStats) error {
	if len(stats) == 0 {
		return nil
	}

	at := r.now()
	rows := make([]StatsSampleModel, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, worktreeStatsToModel(s, at))
	}

	return withRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to record %d worktree stats: %w", len(rows), err)
			}
			return nil
		})
	}, maxRetries)
}

// List implements ports.StatsHistoryReader.List. Newest entries first.
func (r *HistoryRepository) List(ctx context.Context, filter ports.HistoryFilter) ([]ports.HistoryEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var rows []StatsSampleModel
	err := withRetry(func() error {
		query := r.db.WithContext(ctx).Order("recorded_at DESC").Limit(limit)
		if filter.WorktreeID != "" {
			query = query.Where("worktree_id = ?", filter.WorktreeID)
		}
		return query.Find(&rows).Error
	}, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to list stats history: %w", err)
	}

	entries := make([]ports.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, sampleModelToEntry(row))
	}
	return entries, nil
}

// DeleteBefore removes entries recorded before cutoff and returns how many were removed
func (r *HistoryRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := withRetry(func() error {
		result := r.db.WithContext(ctx).Where("recorded_at < ?", cutoff.UTC()).Delete(&StatsSampleModel{})
		removed = result.RowsAffected
		return result.Error
	}, maxRetries)
	if err != nil {
		return 0, fmt.Errorf("failed to prune stats history: %w", err)
	}
	return removed, nil
}

// withRetry retries operations on SQLITE_BUSY with linear backoff
func withRetry(fn func() error, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}

		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
			time.Sleep(time.Millisecond * time.Duration(50*(i+1)))
			continue
		}

		return err
	}
	return fmt.Errorf("operation failed after %d retries", maxRetries)
}
