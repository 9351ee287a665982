package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"wtpulse/internal/config"
	"wtpulse/internal/logging"
)

// CLI represents the command-line interface structure
type CLI struct {
	Version     kong.VersionFlag `help:"Show version information"`
	Debug       bool             `help:"Enable debug logging to file" short:"d" env:"WTPULSE_DEBUG"`
	DebugFile   string           `help:"Custom path for debug log file (disables automatic cleanup)" env:"WTPULSE_DEBUG_FILE"`
	MaxLogFiles int              `help:"Maximum number of log files to keep (0 = unlimited)" default:"1000" env:"WTPULSE_MAX_LOG_FILES"`

	Dir            string        `help:"Directory inside the workspace repository" default:"." type:"path" short:"C"`
	GitBin         string        `help:"Git binary to run" env:"WTPULSE_GIT_BIN"`
	Interval       time.Duration `help:"Poll interval" default:"5s" env:"WTPULSE_INTERVAL"`
	MaxConcurrency int           `help:"Worktrees measured at once per tick (0 = unlimited)" default:"0" env:"WTPULSE_MAX_CONCURRENCY"`
	ParentBranch   string        `help:"Diff base for worktrees (default: branch origin/HEAD points to)" env:"WTPULSE_PARENT_BRANCH"`
	Refresh        time.Duration `help:"Minimum time between fetches of the same remote (0 = fetch every tick)" default:"2m" env:"WTPULSE_REFRESH"`

	Watch    WatchCmd    `cmd:"" help:"Show the live dashboard (default)" default:"1"`
	Status   StatusCmd   `cmd:"status" help:"Print the current branch's stats once (for prompts and status bars)"`
	Stream   StreamCmd   `cmd:"stream" help:"Print stats changes as JSON lines"`
	History  HistoryCmd  `cmd:"history" help:"Show recorded stats history"`
	Serve    ServeCmd    `cmd:"serve" help:"Serve the dashboard over SSH"`
	Settings SettingsCmd `cmd:"settings" help:"Manage settings"`

	// Internal fields (not flags)
	Container  *Container       `kong:"-"`
	logSession *logging.Session `kong:"-"`
	settings   *config.Settings `kong:"-"`
}

// SetSettings sets the settings on the CLI struct
func (c *CLI) SetSettings(settings *config.Settings) {
	c.settings = settings
}

// LoadedSettings returns the settings read at startup, never nil
func (c *CLI) LoadedSettings() *config.Settings {
	if c.settings == nil {
		return &config.Settings{}
	}
	return c.settings
}

// AfterApply initializes logging after CLI parsing and applies settings
func (c *CLI) AfterApply(kctx *kong.Context) error {
	c.applySettings()

	session, err := logging.Initialize(c.logOptions(kctx.Command()))
	if err != nil {
		return err
	}
	c.logSession = session
	if session.Path != "" {
		fmt.Fprintf(os.Stderr, "Debug mode enabled. Logs: %s\n", session.Path)
	}

	// Create container AFTER logging is initialized so adapters log to the right place
	container, err := NewContainer(ContainerOptions{
		Debug:          c.Debug,
		Dir:            c.Dir,
		GitBin:         c.GitBin,
		Interval:       c.Interval,
		MaxConcurrency: c.MaxConcurrency,
		ParentBranch:   c.ParentBranch,
		Refresh:        c.Refresh,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	c.Container = container

	logging.Logger.Debug("CLI configured",
		"dir", c.Dir,
		"interval", c.Interval,
		"refresh", c.Refresh,
		"max_concurrency", c.MaxConcurrency,
		"parent_branch", c.ParentBranch)
	return nil
}

// logOptions resolves logging for one run of command
func (c *CLI) logOptions(command string) logging.Options {
	return logging.Options{
		Attrs:    []any{"command", command},
		Debug:    c.Debug,
		File:     c.DebugFile,
		MaxFiles: c.MaxLogFiles,
	}
}

// applySettings fills flags from settings.json with proper precedence:
// CLI flags > env vars > settings.json > defaults.
// A setting only applies if the flag is at its default value and the env var is not set.
func (c *CLI) applySettings() {
	if c.settings == nil {
		return
	}
	s := c.settings

	if c.MaxLogFiles == logging.DefaultMaxFiles && !hasEnv("WTPULSE_MAX_LOG_FILES") && s.MaxLogFiles != nil {
		c.MaxLogFiles = *s.MaxLogFiles
	}
	if !c.Debug && !hasEnv("WTPULSE_DEBUG") && s.Debug != nil && *s.Debug {
		c.Debug = true
	}
	if c.GitBin == "" && s.GitBin != "" {
		c.GitBin = s.GitBin
	}
	if c.Interval == time.Duration(config.DefaultIntervalMs)*time.Millisecond && !hasEnv("WTPULSE_INTERVAL") && s.IntervalMs != nil {
		c.Interval = s.Interval()
	}
	if c.MaxConcurrency == config.DefaultMaxConcurrency && !hasEnv("WTPULSE_MAX_CONCURRENCY") && s.MaxConcurrency != nil {
		c.MaxConcurrency = *s.MaxConcurrency
	}
	if c.ParentBranch == "" && s.ParentBranch != "" {
		c.ParentBranch = s.ParentBranch
	}
	if c.Refresh == time.Duration(config.DefaultRefreshMs)*time.Millisecond && !hasEnv("WTPULSE_REFRESH") && s.RefreshMs != nil {
		c.Refresh = s.RefreshInterval()
	}
}

// Close closes all resources held by the CLI
func (c *CLI) Close() error {
	var err error
	if c.Container != nil {
		err = c.Container.Close()
	}
	return errors.Join(err, c.logSession.Close())
}

func hasEnv(name string) bool {
	_, ok := os.LookupEnv(name)
	return ok
}
