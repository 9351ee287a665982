package domain

import "errors"

var (
	ErrDiffClientUnavailable = errors.New("diff client unavailable")
	ErrNoWorkspaceRoot       = errors.New("workspace root unknown")
	ErrNotGitRepo            = errors.New("not a git repository")
)
