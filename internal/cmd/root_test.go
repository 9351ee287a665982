package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"wtpulse/internal/config"
	"wtpulse/internal/logging"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func defaultCLI() *CLI {
	return &CLI{
		Interval:    5 * time.Second,
		MaxLogFiles: 1000,
		Refresh:     2 * time.Minute,
	}
}

func TestApplySettings_FillsDefaults(t *testing.T) {
	cli := defaultCLI()
	cli.SetSettings(&config.Settings{
		Debug:          boolPtr(true),
		GitBin:         "/opt/git/bin/git",
		IntervalMs:     intPtr(1500),
		MaxConcurrency: intPtr(2),
		MaxLogFiles:    intPtr(10),
		ParentBranch:   "develop",
		RefreshMs:      intPtr(0),
	})

	cli.applySettings()

	assert.True(t, cli.Debug)
	assert.Equal(t, "/opt/git/bin/git", cli.GitBin)
	assert.Equal(t, 1500*time.Millisecond, cli.Interval)
	assert.Equal(t, 2, cli.MaxConcurrency)
	assert.Equal(t, 10, cli.MaxLogFiles)
	assert.Equal(t, "develop", cli.ParentBranch)
	assert.Equal(t, time.Duration(0), cli.Refresh)
}

func TestApplySettings_FlagsWin(t *testing.T) {
	cli := defaultCLI()
	cli.Interval = 10 * time.Second
	cli.ParentBranch = "main"
	cli.SetSettings(&config.Settings{
		IntervalMs:   intPtr(1500),
		ParentBranch: "develop",
	})

	cli.applySettings()

	assert.Equal(t, 10*time.Second, cli.Interval)
	assert.Equal(t, "main", cli.ParentBranch)
}

func TestApplySettings_EnvWins(t *testing.T) {
	t.Setenv("WTPULSE_INTERVAL", "5s")
	t.Setenv("WTPULSE_REFRESH", "2m")

	cli := defaultCLI()
	cli.SetSettings(&config.Settings{
		IntervalMs: intPtr(1500),
		RefreshMs:  intPtr(0),
	})

	cli.applySettings()

	assert.Equal(t, 5*time.Second, cli.Interval)
	assert.Equal(t, 2*time.Minute, cli.Refresh)
}

func TestApplySettings_NilSettings(t *testing.T) {
	cli := defaultCLI()

	cli.applySettings()

	assert.Equal(t, defaultCLI(), cli)
	assert.Equal(t, &config.Settings{}, cli.LoadedSettings())
}

func TestServeApplySettings(t *testing.T) {
	t.Run("settings fill defaults", func(t *testing.T) {
		s := &ServeCmd{Host: config.DefaultSSHHost, Port: config.DefaultSSHPort}

		s.applySettings(&config.Settings{
			AuthorizedKeys: "/etc/wtpulse/keys",
			History:        boolPtr(true),
			SSHHost:        "0.0.0.0",
			SSHPort:        intPtr(2222),
		})

		assert.Equal(t, "/etc/wtpulse/keys", s.AuthorizedKeys)
		assert.Equal(t, "0.0.0.0", s.Host)
		assert.Equal(t, 2222, s.Port)
		assert.True(t, s.History)
		assert.False(t, s.WatchFiles)
	})

	t.Run("flags win", func(t *testing.T) {
		s := &ServeCmd{AuthorizedKeys: "/keys", Host: "127.0.0.1", Port: 9000}

		s.applySettings(&config.Settings{SSHHost: "0.0.0.0", SSHPort: intPtr(2222)})

		assert.Equal(t, "/keys", s.AuthorizedKeys)
		assert.Equal(t, "127.0.0.1", s.Host)
		assert.Equal(t, 9000, s.Port)
	})

	t.Run("authorized keys default to the user's file", func(t *testing.T) {
		s := &ServeCmd{}

		s.applySettings(&config.Settings{})

		assert.Equal(t, config.ExpandPath("~/.ssh/authorized_keys"), s.AuthorizedKeys)
	})
}

func TestLogOptions(t *testing.T) {
	cli := defaultCLI()
	cli.Debug = true
	cli.DebugFile = "/tmp/wtpulse.log"

	opts := cli.logOptions("status")

	assert.Equal(t, logging.Options{
		Attrs:    []any{"command", "status"},
		Debug:    true,
		File:     "/tmp/wtpulse.log",
		MaxFiles: logging.DefaultMaxFiles,
	}, opts)
}

func TestCLIClose_WithoutContainer(t *testing.T) {
	assert.NoError(t, defaultCLI().Close())
}
