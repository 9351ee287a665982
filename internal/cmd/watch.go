package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"wtpulse/internal/logging"
	"wtpulse/internal/ui"
)

// WatchCmd starts the live dashboard
type WatchCmd struct {
	Dev        bool `help:"Enable development mode (shows version info in the header)"`
	History    bool `help:"Record every change in the stats history" negatable:""`
	WatchFiles bool `help:"Refresh early when files in a worktree change" negatable:""`
}

// Run executes the dashboard
func (w *WatchCmd) Run(cli *CLI) error {
	settings := cli.LoadedSettings()
	if !w.History && settings.History != nil && *settings.History {
		w.History = true
	}
	if !w.WatchFiles && settings.WatchFiles != nil && *settings.WatchFiles {
		w.WatchFiles = true
	}

	c := cli.Container
	if err := c.requireRoot(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if w.History {
		stopRecording, err := c.RecordHistory()
		if err != nil {
			return err
		}
		defer stopRecording()
	}

	// Subscribe before the first tick so its emission reaches the dashboard
	model := ui.NewModel(c.Poller, c.Lister, ui.Options{DevMode: w.Dev})
	defer model.Close()

	c.Start(ctx)

	if w.WatchFiles {
		if err := c.WatchFiles(ctx); err != nil {
			logging.Logger.Warn("File watching disabled", "error", err)
		}
	}

	logging.Logger.Info("Starting dashboard", "root", c.Root)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logging.Logger.Error("Dashboard error", "error", err)
		return fmt.Errorf("error running dashboard: %w", err)
	}

	logging.Logger.Info("Dashboard exited normally")
	return nil
}
