package cmd

import (
	"context"
	"fmt"

	"wtpulse/internal/config"
	"wtpulse/internal/logging"
	"wtpulse/internal/server"
)

// ServeCmd serves the dashboard over SSH
type ServeCmd struct {
	AuthorizedKeys string `help:"authorized_keys file of allowed clients (default: ~/.ssh/authorized_keys)" type:"path"`
	History        bool   `help:"Record every change in the stats history" negatable:""`
	Host           string `help:"Host to bind to" default:"localhost"`
	Port           int    `help:"Port to listen on" default:"23235"`
	WatchFiles     bool   `help:"Refresh early when files in a worktree change" negatable:""`
}

// Run executes the serve command
func (s *ServeCmd) Run(cli *CLI) error {
	s.applySettings(cli.LoadedSettings())

	c := cli.Container
	if err := c.requireRoot(); err != nil {
		return err
	}

	srv, err := server.NewServer(server.Config{
		AuthorizedKeys: s.AuthorizedKeys,
		Dashboard:      c.Poller,
		Host:           s.Host,
		HostKeyPath:    config.GetHostKeyPath(),
		Labels:         c.Lister,
		Port:           s.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if s.History {
		stopRecording, err := c.RecordHistory()
		if err != nil {
			return err
		}
		defer stopRecording()
	}

	c.Start(ctx)
	if s.WatchFiles {
		if err := c.WatchFiles(ctx); err != nil {
			logging.Logger.Warn("File watching disabled", "error", err)
		}
	}

	logging.Logger.Info("Serving dashboard over SSH",
		"address", srv.Address(),
		"root", c.Root,
		"authorized_keys", s.AuthorizedKeys)

	// Blocks until interrupted
	return srv.Start(ctx)
}

// applySettings fills unset flags from settings.json
func (s *ServeCmd) applySettings(settings *config.Settings) {
	if s.AuthorizedKeys == "" {
		s.AuthorizedKeys = settings.AuthorizedKeys
	}
	if s.AuthorizedKeys == "" {
		s.AuthorizedKeys = config.ExpandPath("~/.ssh/authorized_keys")
	}
	if s.Host == config.DefaultSSHHost && settings.SSHHost != "" {
		s.Host = settings.SSHHost
	}
	if s.Port == config.DefaultSSHPort && settings.SSHPort != nil {
		s.Port = *settings.SSHPort
	}
	if !s.History && settings.History != nil && *settings.History {
		s.History = true
	}
	if !s.WatchFiles && settings.WatchFiles != nil && *settings.WatchFiles {
		s.WatchFiles = true
	}
}
