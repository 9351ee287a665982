package config

import (
	"os"
	"path/filepath"
)

// GetHome returns WTPULSE_HOME or the ~/.wtpulse default
func GetHome() string {
	home := os.Getenv("WTPULSE_HOME")
	if home == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ".wtpulse"
		}
		return filepath.Join(homeDir, ".wtpulse")
	}
	return ExpandPath(home)
}

// GetHistoryPath returns $WTPULSE_HOME/history.db
func GetHistoryPath() string {
	return filepath.Join(GetHome(), "history.db")
}

// GetSettingsPath returns $WTPULSE_HOME/settings.json
func GetSettingsPath() string {
	return filepath.Join(GetHome(), "settings.json")
}

// GetHostKeyPath returns $WTPULSE_HOME/ssh_host_ed25519, the key used by `wtpulse serve`
func GetHostKeyPath() string {
	return filepath.Join(GetHome(), "ssh_host_ed25519")
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			if len(path) == 1 {
				return homeDir
			}
			return filepath.Join(homeDir, path[1:])
		}
	}
	return path
}
