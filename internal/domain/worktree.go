package domain

import "time"

// Worktree is a secondary checkout of the workspace repository.
// The polling engine only reads worktrees; their lifecycle belongs to the host.
type Worktree struct {
	Branch       string
	CreatedAt    time.Time
	ID           string
	ParentBranch string // Branch the worktree was created from, used as diff base
	Path         string
}

// FileDiff holds line counts for a single changed file
type FileDiff struct {
	Additions int
	Deletions int
	File      string
	Status    string // Porcelain-like code (M, A, D, R...)
}

// SumDiff adds up additions and deletions across files
func SumDiff(files []FileDiff) (additions, deletions int) {
	for _, f := range files {
		additions += f.Additions
		deletions += f.Deletions
	}
	return additions, deletions
}
