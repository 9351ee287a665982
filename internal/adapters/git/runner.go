package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"wtpulse/internal/logging"
	"wtpulse/internal/ports"
)

// DefaultCommandTimeout bounds a single git invocation when the caller has no deadline
const DefaultCommandTimeout = 30 * time.Second

var (
	safeArgPattern   = regexp.MustCompile(`^[a-z][a-z-]*$`)
	credentialURL    = regexp.MustCompile(`https?://[^\s@]+@`)
	credentialAssign = regexp.MustCompile(`(?i)(token|secret|password|passwd|bearer)=[^\s]+`)
)

// ExecRunner implements ports.CommandRunner by spawning the git binary
type ExecRunner struct {
	gitBin  string
	timeout time.Duration
}

// Verify interface compliance at compile time
var _ ports.CommandRunner = (*ExecRunner)(nil)

// NewExecRunner creates an ExecRunner. Empty gitBin means "git" from PATH.
func NewExecRunner(gitBin string) *ExecRunner {
	if strings.TrimSpace(gitBin) == "" {
		gitBin = "git"
	}
	return &ExecRunner{gitBin: gitBin, timeout: DefaultCommandTimeout}
}

// GitBin returns the configured git binary
func (e *ExecRunner) GitBin() string {
	return e.gitBin
}

// Run executes git with args in cwd and returns trimmed stdout
func (e *ExecRunner) Run(ctx context.Context, cwd string, args ...string) (string, error) {
	if _, ok := ctx.Deadline(); !ok && e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.gitBin, args...)
	if strings.TrimSpace(cwd) != "" {
		cmd.Dir = cwd
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("git %s: timed out: %w", sanitizeArgs(args), ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		if msg == "" {
			msg = err.Error()
		}
		logging.Logger.Debug("Git command failed", "args", sanitizeArgs(args), "cwd", cwd, "error", redactTokens(msg))
		return "", fmt.Errorf("git %s: %s: %w", sanitizeArgs(args), redactTokens(msg), err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// sanitizeArgs keeps at most the first two subcommand tokens that look like
// plain words, so paths and URLs never reach error messages
func sanitizeArgs(args []string) string {
	if len(args) == 0 {
		return "<no-args>"
	}
	safe := make([]string, 0, 2)
	for _, a := range args {
		if !safeArgPattern.MatchString(a) {
			break
		}
		safe = append(safe, a)
		if len(safe) == 2 {
			break
		}
	}
	if len(safe) == 0 {
		return "<redacted>"
	}
	return strings.Join(safe, " ")
}

// redactTokens removes obvious credential substrings from messages
func redactTokens(s string) string {
	s = credentialURL.ReplaceAllString(s, "https://<redacted>@")
	return credentialAssign.ReplaceAllString(s, "$1=<redacted>")
}
