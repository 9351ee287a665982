package ports

import "context"

// CommandRunner executes a git subcommand in cwd.
// Returns trimmed stdout on success.
type CommandRunner interface {
	Run(ctx context.Context, cwd string, args ...string) (string, error)
}

// RunnerFunc adapts a plain function to CommandRunner
type RunnerFunc func(ctx context.Context, cwd string, args ...string) (string, error)

// Run implements CommandRunner
func (f RunnerFunc) Run(ctx context.Context, cwd string, args ...string) (string, error) {
	return f(ctx, cwd, args...)
}
