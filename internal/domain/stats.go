package domain

// WorktreeStats holds line changes and commits ahead for one worktree
type WorktreeStats struct {
	Additions  int    `json:"additions"`
	Commits    int    `json:"commits"` // Commits ahead of the comparison ref
	Deletions  int    `json:"deletions"`
	WorktreeID string `json:"worktreeId"`
}

// LocalStats holds the same numbers for the workspace's current branch
type LocalStats struct {
	Additions int    `json:"additions"`
	Branch    string `json:"branch"`
	Commits   int    `json:"commits"`
	Deletions int    `json:"deletions"`
}

// DetachedHead is what git reports as branch name when HEAD is detached
const DetachedHead = "HEAD"
