package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"wtpulse/internal/domain"
)

// WorktreeStatsMsg carries a changed worktree batch
type WorktreeStatsMsg struct {
	Batch  []domain.WorktreeStats
	closed bool
}

// LocalStatsMsg carries changed local branch stats
type LocalStatsMsg struct {
	Batch  []domain.LocalStats
	closed bool
}

// clockMsg refreshes relative timestamps
type clockMsg time.Time

// waitForWorktrees blocks on the next worktree batch
func waitForWorktrees(ch <-chan []domain.WorktreeStats) tea.Cmd {
	return func() tea.Msg {
		batch, ok := <-ch
		return WorktreeStatsMsg{Batch: batch, closed: !ok}
	}
}

// waitForLocal blocks on the next local stats batch
func waitForLocal(ch <-chan []domain.LocalStats) tea.Cmd {
	return func() tea.Msg {
		batch, ok := <-ch
		return LocalStatsMsg{Batch: batch, closed: !ok}
	}
}

func clockTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}
