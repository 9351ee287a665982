package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"no args", nil, "<no-args>"},
		{"single subcommand", []string{"fetch"}, "fetch"},
		{"keeps two words", []string{"rev-parse", "abbrev", "HEAD"}, "rev-parse abbrev"},
		{"stops at flag", []string{"diff", "--numstat", "abc123"}, "diff"},
		{"stops at url", []string{"https://x@host/repo"}, "<redacted>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeArgs(tt.args))
		})
	}
}

func TestRedactTokens(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"fatal: https://user:pw@github.com/o/r", "fatal: https://<redacted>@github.com/o/r"},
		{"token=abc123 failed", "token=<redacted> failed"},
		{"plain message", "plain message"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, redactTokens(tt.input))
		})
	}
}

func TestNewExecRunner_DefaultsToGit(t *testing.T) {
	assert.Equal(t, "git", NewExecRunner("  ").GitBin())
	assert.Equal(t, "/usr/local/bin/git", NewExecRunner("/usr/local/bin/git").GitBin())
}
