package git

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"wtpulse/internal/domain"
	"wtpulse/internal/ports"
)

// CLIDiffClient implements ports.DiffClient with git diff against the merge-base
type CLIDiffClient struct {
	runner ports.CommandRunner
}

// Verify interface compliance at compile time
var _ ports.DiffClient = (*CLIDiffClient)(nil)

// NewCLIDiffClient creates a new CLIDiffClient
func NewCLIDiffClient(runner ports.CommandRunner) *CLIDiffClient {
	return &CLIDiffClient{runner: runner}
}

// WorktreeDiff returns per-file changes of the working tree at path since it
// diverged from baseBranch. Uncommitted changes to tracked files are included.
func (c *CLIDiffClient) WorktreeDiff(ctx context.Context, path, baseBranch string) ([]domain.FileDiff, error) {
	if strings.TrimSpace(baseBranch) == "" {
		return nil, fmt.Errorf("empty base branch")
	}

	mergeBase, err := c.runner.Run(ctx, path, "merge-base", baseBranch, "HEAD")
	if err != nil {
		return nil, fmt.Errorf("failed to find merge-base with %s: %w", baseBranch, err)
	}

	numstat, err := c.runner.Run(ctx, path, "diff", "--numstat", mergeBase)
	if err != nil {
		return nil, fmt.Errorf("git diff --numstat failed: %w", err)
	}

	nameStatus, err := c.runner.Run(ctx, path, "diff", "--name-status", mergeBase)
	if err != nil {
		return nil, fmt.Errorf("git diff --name-status failed: %w", err)
	}

	files := parseNumstat(numstat)
	statuses := parseNameStatus(nameStatus)
	for i := range files {
		if status, ok := statuses[files[i].File]; ok {
			files[i].Status = status
		} else {
			files[i].Status = "M"
		}
	}

	return files, nil
}

// parseNumstat parses "ADDED\tDELETED\tPATH" lines. Binary files ("-") count as zero.
func parseNumstat(output string) []domain.FileDiff {
	var files []domain.FileDiff
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.SplitN(line, "\t", 3)
		if len(parts) < 3 {
			continue
		}

		files = append(files, domain.FileDiff{
			Additions: parseCount(parts[0]),
			Deletions: parseCount(parts[1]),
			File:      renamedPath(parts[2]),
		})
	}
	return files
}

func parseCount(s string) int {
	if s == "-" {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// renamedPath resolves numstat rename notation to the new path:
// "old => new" and "dir/{old => new}/file"
func renamedPath(p string) string {
	if !strings.Contains(p, " => ") {
		return p
	}

	open := strings.Index(p, "{")
	closeIdx := strings.Index(p, "}")
	if open >= 0 && closeIdx > open {
		inner := p[open+1 : closeIdx]
		parts := strings.SplitN(inner, " => ", 2)
		joined := p[:open] + parts[len(parts)-1] + p[closeIdx+1:]
		return strings.ReplaceAll(joined, "//", "/")
	}

	parts := strings.SplitN(p, " => ", 2)
	return parts[1]
}

// parseNameStatus maps path -> single letter status. Renames and copies are keyed by the new path.
func parseNameStatus(output string) map[string]string {
	statuses := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 2 || fields[0] == "" {
			continue
		}
		status := fields[0][:1]
		statuses[fields[len(fields)-1]] = status
	}
	return statuses
}

// DiffClientFactory hands out a CLIDiffClient as long as the git binary can be found
type DiffClientFactory struct {
	client   *CLIDiffClient
	gitBin   string
	lookPath func(string) (string, error)
}

// Verify interface compliance at compile time
var _ ports.DiffClientFactory = (*DiffClientFactory)(nil)

// NewDiffClientFactory creates a factory backed by runner
func NewDiffClientFactory(runner *ExecRunner) *DiffClientFactory {
	return &DiffClientFactory{
		client:   NewCLIDiffClient(runner),
		gitBin:   runner.GitBin(),
		lookPath: exec.LookPath,
	}
}

// DiffClient implements ports.DiffClientFactory
func (f *DiffClientFactory) DiffClient() (ports.DiffClient, error) {
	if _, err := f.lookPath(f.gitBin); err != nil {
		return nil, fmt.Errorf("%w: %s not found: %v", domain.ErrDiffClientUnavailable, f.gitBin, err)
	}
	return f.client, nil
}
