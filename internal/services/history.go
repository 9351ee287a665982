package services

import (
	"context"
	"log/slog"
	"time"

	"wtpulse/internal/domain"
	"wtpulse/internal/logging"
	"wtpulse/internal/ports"
)

const recordTimeout = 5 * time.Second

// StatsSubscriber is what HistoryService attaches to
type StatsSubscriber interface {
	OnLocalStats(fn func(domain.LocalStats)) func()
	OnStats(fn func([]domain.WorktreeStats)) func()
}

// HistoryService records emitted stats and reads them back
type HistoryService struct {
	history ports.StatsHistory
	logger  *slog.Logger
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(history ports.StatsHistory, logger *slog.Logger) *HistoryService {
	if logger == nil {
		logger = logging.Logger
	}
	return &HistoryService{
		history: history,
		logger:  logger,
	}
}

// Attach records every emission of source until the returned func is called.
// Write failures are logged; they never affect polling.
func (s *HistoryService) Attach(source StatsSubscriber) func() {
	cancelStats := source.OnStats(func(batch []domain.WorktreeStats) {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := s.history.RecordWorktrees(ctx, batch); err != nil {
			s.logger.Warn("Failed to record worktree stats", "count", len(batch), "error", err)
		}
	})

	cancelLocal := source.OnLocalStats(func(stats domain.LocalStats) {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := s.history.RecordLocal(ctx, stats); err != nil {
			s.logger.Warn("Failed to record local stats", "branch", stats.Branch, "error", err)
		}
	})

	return func() {
		cancelStats()
		cancelLocal()
	}
}

// List returns recorded entries, newest first
func (s *HistoryService) List(ctx context.Context, filter ports.HistoryFilter) ([]ports.HistoryEntry, error) {
	return s.history.List(ctx, filter)
}

// Prune removes entries older than maxAge
func (s *HistoryService) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	removed, err := s.history.DeleteBefore(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	s.logger.Info("Pruned stats history", "removed", removed, "max_age", maxAge)
	return removed, nil
}
