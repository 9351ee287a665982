package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"wtpulse/internal/domain"
)

// Defaults for settings that are not set anywhere
const (
	DefaultIntervalMs     = 5000
	DefaultMaxConcurrency = 0
	DefaultRefreshMs      = 120000
	DefaultSSHHost        = "localhost"
	DefaultSSHPort        = 23235
)

// Settings represents the structure of $WTPULSE_HOME/settings.json.
// Pointer fields distinguish "unset" from the zero value.
type Settings struct {
	AuthorizedKeys string `json:"authorized_keys,omitempty"`
	Debug          *bool  `json:"debug,omitempty"`
	GitBin         string `json:"git_bin,omitempty"`
	History        *bool  `json:"history,omitempty"`
	IntervalMs     *int   `json:"interval_ms,omitempty"`
	MaxConcurrency *int   `json:"max_concurrency,omitempty"`
	MaxLogFiles    *int   `json:"max_log_files,omitempty"`
	ParentBranch   string `json:"parent_branch,omitempty"`
	RefreshMs      *int   `json:"refresh_ms,omitempty"`
	SSHHost        string `json:"ssh_host,omitempty"`
	SSHPort        *int   `json:"ssh_port,omitempty"`
	WatchFiles     *bool  `json:"watch_files,omitempty"`
}

// Validate checks values that would make the pollers misbehave
func (s *Settings) Validate() error {
	if s.IntervalMs != nil && *s.IntervalMs <= 0 {
		return fmt.Errorf("interval_ms must be positive, got %d", *s.IntervalMs)
	}
	if s.RefreshMs != nil && *s.RefreshMs < 0 {
		return fmt.Errorf("refresh_ms must not be negative, got %d", *s.RefreshMs)
	}
	if s.MaxConcurrency != nil && *s.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must not be negative, got %d", *s.MaxConcurrency)
	}
	if s.SSHPort != nil && (*s.SSHPort <= 0 || *s.SSHPort > 65535) {
		return fmt.Errorf("ssh_port out of range: %d", *s.SSHPort)
	}
	if s.ParentBranch != "" {
		if err := domain.ValidateBranchName(s.ParentBranch); err != nil {
			return fmt.Errorf("parent_branch: %w", err)
		}
	}
	return nil
}

// Interval returns the poll interval, falling back to the default
func (s *Settings) Interval() time.Duration {
	return msOrDefault(s.IntervalMs, DefaultIntervalMs)
}

// RefreshInterval returns the remote fetch throttle window, falling back to the default
func (s *Settings) RefreshInterval() time.Duration {
	return msOrDefault(s.RefreshMs, DefaultRefreshMs)
}

func msOrDefault(ms *int, def int) time.Duration {
	if ms == nil {
		return time.Duration(def) * time.Millisecond
	}
	return time.Duration(*ms) * time.Millisecond
}

// LoadSettings loads settings from $WTPULSE_HOME/settings.json (or ~/.wtpulse/settings.json if not set)
// Returns empty Settings if file doesn't exist (not an error)
func LoadSettings() (*Settings, error) {
	return LoadSettingsFrom(GetSettingsPath())
}

// LoadSettingsFrom loads settings from path
func LoadSettingsFrom(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil // Not an error, use defaults
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("invalid settings.json: %w", err)
	}

	if settings.GitBin != "" {
		settings.GitBin = ExpandPath(settings.GitBin)
	}
	if settings.AuthorizedKeys != "" {
		settings.AuthorizedKeys = ExpandPath(settings.AuthorizedKeys)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings.json: %w", err)
	}

	return &settings, nil
}

// SaveSettings saves settings to $WTPULSE_HOME/settings.json
func SaveSettings(settings *Settings) error {
	path := GetSettingsPath()
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}
