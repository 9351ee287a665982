package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wtpulse/internal/adapters/git/gittest"
	"wtpulse/internal/domain"
	"wtpulse/internal/logging"
)

var upstreamArgs = []string{"rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}"}

func newTestResolver(runner *gittest.Runner, refresh time.Duration) *RemoteResolver {
	return NewRemoteResolver(runner, refresh, logging.Discard())
}

// scriptRepo sets up a checkout of branch with no upstream and a shared common dir
func scriptRepo(branch string) *gittest.Runner {
	return gittest.NewRunner().
		Fail(upstreamArgs...).
		Set(branch, "rev-parse", "--abbrev-ref", "HEAD").
		Set("/repo/.git", "rev-parse", "--git-common-dir").
		Set("", "fetch", "origin")
}

func TestCurrentBranch(t *testing.T) {
	tests := []struct {
		name     string
		runner   *gittest.Runner
		expected string
	}{
		{
			name:     "named branch",
			runner:   gittest.NewRunner().Set("feature", "rev-parse", "--abbrev-ref", "HEAD"),
			expected: "feature",
		},
		{
			name:     "detached head",
			runner:   gittest.NewRunner().Set("HEAD", "rev-parse", "--abbrev-ref", "HEAD"),
			expected: "",
		},
		{
			name:     "command fails",
			runner:   gittest.NewRunner().Fail("rev-parse", "--abbrev-ref", "HEAD"),
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := newTestResolver(tt.runner, time.Minute)
			assert.Equal(t, tt.expected, resolver.CurrentBranch(context.Background(), "/repo"))
		})
	}
}

func TestResolveRemote(t *testing.T) {
	tests := []struct {
		name     string
		runner   *gittest.Runner
		branch   string
		expected string
	}{
		{
			name:     "upstream remote wins",
			runner:   gittest.NewRunner().Set("upstream/main", upstreamArgs...),
			branch:   "feature",
			expected: "upstream",
		},
		{
			name: "branch config",
			runner: gittest.NewRunner().
				Fail(upstreamArgs...).
				Set("myfork", "config", "--get", "branch.feature.remote"),
			branch:   "feature",
			expected: "myfork",
		},
		{
			name: "discovers branch when none given",
			runner: gittest.NewRunner().
				Fail(upstreamArgs...).
				Set("topic", "rev-parse", "--abbrev-ref", "HEAD").
				Set("myfork", "config", "--get", "branch.topic.remote"),
			expected: "myfork",
		},
		{
			name: "defaults to origin",
			runner: gittest.NewRunner().
				Fail(upstreamArgs...).
				Fail("config", "--get", "branch.feature.remote"),
			branch:   "feature",
			expected: "origin",
		},
		{
			name: "detached head defaults to origin",
			runner: gittest.NewRunner().
				Fail(upstreamArgs...).
				Set("HEAD", "rev-parse", "--abbrev-ref", "HEAD"),
			expected: "origin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := newTestResolver(tt.runner, time.Minute)
			assert.Equal(t, tt.expected, resolver.ResolveRemote(context.Background(), "/repo", tt.branch))
		})
	}
}

func TestResolveTrackingBranch(t *testing.T) {
	t.Run("configured upstream", func(t *testing.T) {
		runner := gittest.NewRunner().Set("origin/feature", upstreamArgs...)
		resolver := newTestResolver(runner, time.Minute)

		ref, ok := resolver.ResolveTrackingBranch(context.Background(), "/repo", "feature")

		assert.True(t, ok)
		assert.Equal(t, "origin/feature", ref)
	})

	t.Run("existing remote branch", func(t *testing.T) {
		runner := gittest.NewRunner().
			Fail(upstreamArgs...).
			Set("myfork", "config", "--get", "branch.feature.remote").
			Set("", "show-ref", "--verify", "--quiet", "refs/remotes/myfork/feature")
		resolver := newTestResolver(runner, time.Minute)

		ref, ok := resolver.ResolveTrackingBranch(context.Background(), "/repo", "feature")

		assert.True(t, ok)
		assert.Equal(t, "myfork/feature", ref)
		assert.Equal(t, 1, runner.Count(upstreamArgs...))
	})

	t.Run("remote branch missing", func(t *testing.T) {
		runner := gittest.NewRunner().Fail(upstreamArgs...)
		resolver := newTestResolver(runner, time.Minute)

		ref, ok := resolver.ResolveTrackingBranch(context.Background(), "/repo", "feature")

		assert.False(t, ok)
		assert.Empty(t, ref)
	})

	t.Run("no branch", func(t *testing.T) {
		runner := gittest.NewRunner().Fail(upstreamArgs...)
		resolver := newTestResolver(runner, time.Minute)

		_, ok := resolver.ResolveTrackingBranch(context.Background(), "/repo", "")

		assert.False(t, ok)
		assert.Zero(t, runner.CountPrefix("show-ref"))
	})
}

func TestResolveDefaultBranch(t *testing.T) {
	t.Run("remote head set", func(t *testing.T) {
		runner := gittest.NewRunner().
			Fail(upstreamArgs...).
			Set("myfork", "config", "--get", "branch.feature.remote").
			Set("myfork/develop", "symbolic-ref", "--short", "refs/remotes/myfork/HEAD")
		resolver := newTestResolver(runner, time.Minute)

		ref, ok := resolver.ResolveDefaultBranch(context.Background(), "/repo", "feature")

		assert.True(t, ok)
		assert.Equal(t, "myfork/develop", ref)
	})

	t.Run("remote head unset", func(t *testing.T) {
		runner := gittest.NewRunner().
			Fail(upstreamArgs...).
			Fail("symbolic-ref", "--short", "refs/remotes/origin/HEAD")
		resolver := newTestResolver(runner, time.Minute)

		_, ok := resolver.ResolveDefaultBranch(context.Background(), "/repo", "feature")

		assert.False(t, ok)
	})
}

func TestHasRemoteRef(t *testing.T) {
	runner := gittest.NewRunner().Set("", "show-ref", "--verify", "--quiet", "refs/remotes/origin/main")
	resolver := newTestResolver(runner, time.Minute)

	assert.True(t, resolver.HasRemoteRef(context.Background(), "/repo", "origin/main"))
	assert.False(t, resolver.HasRemoteRef(context.Background(), "/repo", "origin/gone"))
	assert.False(t, resolver.HasRemoteRef(context.Background(), "/repo", ""))
}

func TestCountMissingOriginCommits(t *testing.T) {
	tests := []struct {
		name      string
		runner    *gittest.Runner
		parent    string
		expected  int
		fetchArgs []string
	}{
		{
			name: "upstream configured",
			runner: gittest.NewRunner().
				Set("origin/main", upstreamArgs...).
				Set("feature", "rev-parse", "--abbrev-ref", "HEAD").
				Set("/repo/.git", "rev-parse", "--git-common-dir").
				Set("", "fetch", "origin").
				Set("3", "rev-list", "--count", "origin/main..HEAD"),
			parent:    "main",
			expected:  3,
			fetchArgs: []string{"fetch", "origin"},
		},
		{
			name: "branch remote from config",
			runner: gittest.NewRunner().
				Fail(upstreamArgs...).
				Set("feature", "rev-parse", "--abbrev-ref", "HEAD").
				Set("myfork", "config", "--get", "branch.feature.remote").
				Set("/repo/.git", "rev-parse", "--git-common-dir").
				Set("", "fetch", "myfork").
				Set("", "show-ref", "--verify", "--quiet", "refs/remotes/myfork/feature").
				Set("4", "rev-list", "--count", "myfork/feature..HEAD"),
			parent:    "main",
			expected:  4,
			fetchArgs: []string{"fetch", "myfork"},
		},
		{
			name: "remote parent branch",
			runner: scriptRepo("feature").
				Set("", "show-ref", "--verify", "--quiet", "refs/remotes/origin/main").
				Set("2", "rev-list", "--count", "origin/main..HEAD"),
			parent:    "main",
			expected:  2,
			fetchArgs: []string{"fetch", "origin"},
		},
		{
			name: "local parent branch as last resort",
			runner: scriptRepo("feature").
				Set("6", "rev-list", "--count", "main..HEAD"),
			parent:    "main",
			expected:  6,
			fetchArgs: []string{"fetch", "origin"},
		},
		{
			name: "rev-list fails",
			runner: scriptRepo("feature").
				Set("", "show-ref", "--verify", "--quiet", "refs/remotes/origin/main").
				Fail("rev-list", "--count", "origin/main..HEAD"),
			parent:    "main",
			expected:  0,
			fetchArgs: []string{"fetch", "origin"},
		},
		{
			name:      "fetch failure does not abort the count",
			runner:    scriptRepo("feature").Fail("fetch", "origin").Set("1", "rev-list", "--count", "main..HEAD"),
			parent:    "main",
			expected:  1,
			fetchArgs: []string{"fetch", "origin"},
		},
		{
			name:      "nothing to compare against",
			runner:    scriptRepo("feature"),
			parent:    "",
			expected:  0,
			fetchArgs: []string{"fetch", "origin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := newTestResolver(tt.runner, time.Minute)

			got := resolver.CountMissingOriginCommits(context.Background(), "/repo", tt.parent)

			assert.Equal(t, tt.expected, got)
			assert.Equal(t, 1, tt.runner.Count(tt.fetchArgs...))
		})
	}
}

func TestRefreshRemote_DeduplicatesAcrossWorktrees(t *testing.T) {
	runner := gittest.NewRunner().
		SetIn("/wt/a", "/repo/.git", "rev-parse", "--git-common-dir").
		SetIn("/wt/b", "/repo/.git", "rev-parse", "--git-common-dir").
		Set("", "fetch", "origin").
		Delay(50*time.Millisecond, "fetch", "origin")
	resolver := newTestResolver(runner, time.Minute)

	var wg sync.WaitGroup
	for _, cwd := range []string{"/wt/a", "/wt/b", "/wt/a", "/wt/b"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resolver.RefreshRemote(context.Background(), cwd, "origin")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, runner.Count("fetch", "origin"))

	// Still within the window
	resolver.RefreshRemote(context.Background(), "/wt/b", "origin")
	assert.Equal(t, 1, runner.Count("fetch", "origin"))
}

func TestRefreshRemote_SeparateRepositoriesFetchIndependently(t *testing.T) {
	runner := gittest.NewRunner().
		SetIn("/one", ".git", "rev-parse", "--git-common-dir").
		SetIn("/two", ".git", "rev-parse", "--git-common-dir").
		Set("", "fetch", "origin")
	resolver := newTestResolver(runner, time.Minute)

	resolver.RefreshRemote(context.Background(), "/one", "origin")
	resolver.RefreshRemote(context.Background(), "/two", "origin")

	assert.Equal(t, 2, runner.Count("fetch", "origin"))
}

func TestRefreshRemote_EmptyRemoteIsNoop(t *testing.T) {
	runner := gittest.NewRunner()
	resolver := newTestResolver(runner, time.Minute)

	resolver.RefreshRemote(context.Background(), "/repo", "")

	assert.Empty(t, runner.Calls())
}

func TestResetFetchState_AllowsImmediateFetch(t *testing.T) {
	runner := gittest.NewRunner().
		Set("/repo/.git", "rev-parse", "--git-common-dir").
		Set("", "fetch", "origin")
	resolver := newTestResolver(runner, time.Hour)

	resolver.RefreshRemote(context.Background(), "/repo", "origin")
	resolver.ResetFetchState()
	resolver.RefreshRemote(context.Background(), "/repo", "origin")

	assert.Equal(t, 2, runner.Count("fetch", "origin"))
}

func TestCountMissingOriginCommits_FreshResolversShareFetchWindow(t *testing.T) {
	commonDir := t.TempDir()
	runner := scriptRepo("feature").Set(commonDir, "rev-parse", "--git-common-dir")

	// One resolver per short-lived process, like repeated `wtpulse status` runs
	run := func() {
		newTestResolver(runner, 2*time.Minute).CountMissingOriginCommits(context.Background(), "/repo", "")
	}

	run()
	require.Equal(t, 1, runner.Count("fetch", "origin"))

	// git writes FETCH_HEAD on every fetch
	fetchHead := filepath.Join(commonDir, "FETCH_HEAD")
	require.NoError(t, os.WriteFile(fetchHead, nil, 0o644))

	run()
	run()
	assert.Equal(t, 1, runner.Count("fetch", "origin"))

	old := time.Now().Add(-3 * time.Minute)
	require.NoError(t, os.Chtimes(fetchHead, old, old))

	run()
	assert.Equal(t, 2, runner.Count("fetch", "origin"))
}

func TestCountMissingOriginCommits_DetachedHeadLooksUpBranchOnce(t *testing.T) {
	runner := scriptRepo(domain.DetachedHead).
		Set("", "show-ref", "--verify", "--quiet", "refs/remotes/origin/main").
		Set("5", "rev-list", "--count", "origin/main..HEAD")
	resolver := newTestResolver(runner, time.Minute)

	got := resolver.CountMissingOriginCommits(context.Background(), "/repo", "main")

	assert.Equal(t, 5, got)
	assert.Equal(t, 1, runner.Count("rev-parse", "--abbrev-ref", "HEAD"))
	assert.Equal(t, 0, runner.CountPrefix("config"))
	assert.Equal(t, 1, runner.Count("fetch", "origin"))
}
