package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wtpulse/internal/domain"
	"wtpulse/internal/logging"
)

// streamBuffer is how many batches the writer may lag behind
const streamBuffer = 4

// StreamCmd prints every stats change as one JSON object per line
type StreamCmd struct {
	WatchFiles bool `help:"Refresh early when files in a worktree change" negatable:""`
}

// streamEvent is one line of stream output
type streamEvent struct {
	At        time.Time              `json:"at"`
	Local     *domain.LocalStats     `json:"local,omitempty"`
	Type      string                 `json:"type"` // "local" or "worktrees"
	Worktrees []domain.WorktreeStats `json:"worktrees,omitempty"`
}

// Run executes the stream command until interrupted
func (s *StreamCmd) Run(cli *CLI) error {
	settings := cli.LoadedSettings()
	if !s.WatchFiles && settings.WatchFiles != nil && *settings.WatchFiles {
		s.WatchFiles = true
	}

	c := cli.Container
	if err := c.requireRoot(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worktrees, cancelWorktrees := c.Poller.Updates(streamBuffer)
	defer cancelWorktrees()
	local, cancelLocal := c.Poller.LocalUpdates(streamBuffer)
	defer cancelLocal()

	c.Start(ctx)
	if s.WatchFiles {
		if err := c.WatchFiles(ctx); err != nil {
			logging.Logger.Warn("File watching disabled", "error", err)
		}
	}

	logging.Logger.Info("Streaming stats", "root", c.Root)
	return streamEvents(ctx, os.Stdout, worktrees, local, time.Now)
}

// streamEvents writes events until ctx is done or both channels close
func streamEvents(
	ctx context.Context,
	w io.Writer,
	worktrees <-chan []domain.WorktreeStats,
	local <-chan []domain.LocalStats,
	now func() time.Time,
) error {
	enc := json.NewEncoder(w)

	for worktrees != nil || local != nil {
		var ev streamEvent
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-worktrees:
			if !ok {
				worktrees = nil
				continue
			}
			ev = streamEvent{At: now(), Type: "worktrees", Worktrees: batch}
		case batch, ok := <-local:
			if !ok {
				local = nil
				continue
			}
			if len(batch) == 0 {
				continue
			}
			stats := batch[len(batch)-1]
			ev = streamEvent{At: now(), Local: &stats, Type: "local"}
		}

		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}
	return nil
}
