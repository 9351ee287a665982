package services

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"wtpulse/internal/domain"
	"wtpulse/internal/logging"
	"wtpulse/internal/ports"
)

// DefaultRemote is used when neither upstream nor branch config names a remote
const DefaultRemote = "origin"

// RemoteResolver infers remotes and tracking branches for a working copy and
// counts commits not yet on the remote. Every method fails softly: command
// errors turn into the documented fallback value.
type RemoteResolver struct {
	logger   *slog.Logger
	runner   ports.CommandRunner
	throttle *FetchThrottle
}

// NewRemoteResolver creates a RemoteResolver. refreshInterval is the fetch
// throttle window; nil logger means logging.Logger.
func NewRemoteResolver(runner ports.CommandRunner, refreshInterval time.Duration, logger *slog.Logger) *RemoteResolver {
	if logger == nil {
		logger = logging.Logger
	}
	return &RemoteResolver{
		logger:   logger,
		runner:   runner,
		throttle: NewFetchThrottle(refreshInterval, logger),
	}
}

// CurrentBranch returns the checked-out branch, or "" when detached or on failure
func (r *RemoteResolver) CurrentBranch(ctx context.Context, cwd string) string {
	branch, err := r.runner.Run(ctx, cwd, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		r.logger.Debug("Failed to get current branch", "cwd", cwd, "error", err)
		return ""
	}
	if branch == domain.DetachedHead {
		return ""
	}
	return branch
}

// ResolveRemote returns the remote of the configured upstream, else the
// branch.<name>.remote config value, else "origin"
func (r *RemoteResolver) ResolveRemote(ctx context.Context, cwd, branch string) string {
	upstream := r.upstream(ctx, cwd)
	if remote := remoteOf(upstream); remote != "" {
		return remote
	}
	if branch == "" {
		branch = r.CurrentBranch(ctx, cwd)
	}
	return r.resolveRemote(ctx, cwd, branch, upstream)
}

// resolveRemote is ResolveRemote with branch and upstream already looked up.
// An empty or detached branch skips the branch config.
func (r *RemoteResolver) resolveRemote(ctx context.Context, cwd, branch, upstream string) string {
	if remote := remoteOf(upstream); remote != "" {
		return remote
	}

	if isNamedBranch(branch) {
		remote, err := r.runner.Run(ctx, cwd, "config", "--get", "branch."+branch+".remote")
		if err == nil && remote != "" {
			return remote
		}
	}

	return DefaultRemote
}

// ResolveTrackingBranch returns the configured upstream, else <remote>/<branch>
// when that ref exists, else false
func (r *RemoteResolver) ResolveTrackingBranch(ctx context.Context, cwd, branch string) (string, bool) {
	upstream := r.upstream(ctx, cwd)
	if upstream != "" {
		return upstream, true
	}
	if !isNamedBranch(branch) {
		return "", false
	}

	candidate := r.resolveRemote(ctx, cwd, branch, upstream) + "/" + branch
	if r.HasRemoteRef(ctx, cwd, candidate) {
		return candidate, true
	}
	return "", false
}

// ResolveDefaultBranch returns the target of refs/remotes/<remote>/HEAD (e.g. "origin/main")
func (r *RemoteResolver) ResolveDefaultBranch(ctx context.Context, cwd, branch string) (string, bool) {
	remote := r.ResolveRemote(ctx, cwd, branch)
	ref, err := r.runner.Run(ctx, cwd, "symbolic-ref", "--short", "refs/remotes/"+remote+"/HEAD")
	if err != nil || ref == "" {
		return "", false
	}
	return ref, true
}

// HasRemoteRef reports whether refs/remotes/<ref> exists
func (r *RemoteResolver) HasRemoteRef(ctx context.Context, cwd, ref string) bool {
	if ref == "" {
		return false
	}
	_, err := r.runner.Run(ctx, cwd, "show-ref", "--verify", "--quiet", "refs/remotes/"+ref)
	return err == nil
}

// RefreshRemote fetches remote, throttled and deduplicated per repository+remote
func (r *RemoteResolver) RefreshRemote(ctx context.Context, cwd, remote string) {
	if remote == "" {
		return
	}

	key := fetchKey{commonDir: r.commonDir(ctx, cwd), remote: remote}
	r.throttle.Do(ctx, key, func(ctx context.Context) error {
		_, err := r.runner.Run(ctx, cwd, "fetch", remote)
		return err
	})
}

// CountMissingOriginCommits counts commits on HEAD that the remote does not have.
// Comparison ref, in order: upstream, <remote>/<branch>, <remote>/<parentBranch>, parentBranch.
func (r *RemoteResolver) CountMissingOriginCommits(ctx context.Context, cwd, parentBranch string) int {
	upstream := r.upstream(ctx, cwd)
	branch := r.CurrentBranch(ctx, cwd)
	remote := r.resolveRemote(ctx, cwd, branch, upstream)

	r.RefreshRemote(ctx, cwd, remote)

	if upstream != "" {
		return r.countAhead(ctx, cwd, upstream)
	}

	var ref string
	switch {
	case isNamedBranch(branch) && r.HasRemoteRef(ctx, cwd, remote+"/"+branch):
		ref = remote + "/" + branch
	case parentBranch != "" && r.HasRemoteRef(ctx, cwd, remote+"/"+parentBranch):
		ref = remote + "/" + parentBranch
	default:
		ref = parentBranch
	}

	if ref == "" {
		return 0
	}
	return r.countAhead(ctx, cwd, ref)
}

// ResetFetchState forgets fetch timestamps so the next refresh fetches again
func (r *RemoteResolver) ResetFetchState() {
	r.throttle.Reset()
}

// upstream returns the configured upstream of HEAD (e.g. "origin/main") or ""
func (r *RemoteResolver) upstream(ctx context.Context, cwd string) string {
	upstream, err := r.runner.Run(ctx, cwd, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}")
	if err != nil {
		return ""
	}
	return upstream
}

// countAhead returns the number of commits in ref..HEAD, 0 on failure
func (r *RemoteResolver) countAhead(ctx context.Context, cwd, ref string) int {
	out, err := r.runner.Run(ctx, cwd, "rev-list", "--count", ref+"..HEAD")
	if err != nil {
		r.logger.Debug("Failed to count commits ahead", "cwd", cwd, "ref", ref, "error", err)
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		r.logger.Debug("Unexpected rev-list output", "cwd", cwd, "output", out)
		return 0
	}
	return n
}

// commonDir returns the git directory shared by all worktrees of the repository at cwd.
// Falls back to cwd itself so throttling still works per working copy.
func (r *RemoteResolver) commonDir(ctx context.Context, cwd string) string {
	dir, err := r.runner.Run(ctx, cwd, "rev-parse", "--git-common-dir")
	if err != nil || dir == "" {
		return filepath.Clean(cwd)
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(cwd, dir)
	}
	return filepath.Clean(dir)
}

// remoteOf returns the remote component of "<remote>/<branch>"
func remoteOf(ref string) string {
	if idx := strings.Index(ref, "/"); idx > 0 {
		return ref[:idx]
	}
	return ""
}

func isNamedBranch(branch string) bool {
	return branch != "" && branch != domain.DetachedHead
}
