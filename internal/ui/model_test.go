package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wtpulse/internal/domain"
	"wtpulse/internal/ports"
)

type fakeDashboard struct {
	cancelled  int
	enabled    bool
	last       []domain.WorktreeStats
	lastLocal  *domain.LocalStats
	localCh    chan []domain.LocalStats
	triggered  int
	worktreeCh chan []domain.WorktreeStats
}

func newFakeDashboard() *fakeDashboard {
	return &fakeDashboard{
		enabled:    true,
		localCh:    make(chan []domain.LocalStats, 1),
		worktreeCh: make(chan []domain.WorktreeStats, 1),
	}
}

func (f *fakeDashboard) Enabled() bool { return f.enabled }

func (f *fakeDashboard) LastLocalStats() (domain.LocalStats, bool) {
	if f.lastLocal == nil {
		return domain.LocalStats{}, false
	}
	return *f.lastLocal, true
}

func (f *fakeDashboard) LastStats() []domain.WorktreeStats { return f.last }

func (f *fakeDashboard) LocalUpdates(int) (<-chan []domain.LocalStats, func()) {
	return f.localCh, func() { f.cancelled++ }
}

func (f *fakeDashboard) SetEnabled(enabled bool) { f.enabled = enabled }

func (f *fakeDashboard) TriggerNow() { f.triggered++ }

func (f *fakeDashboard) Updates(int) (<-chan []domain.WorktreeStats, func()) {
	return f.worktreeCh, func() { f.cancelled++ }
}

var labels = ports.WorktreeSourceFunc(func() []domain.Worktree {
	return []domain.Worktree{{ID: "wt-1", Branch: "feature/login", Path: "/ws/login"}}
})

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel_SeedsFromLastValues(t *testing.T) {
	d := newFakeDashboard()
	d.last = []domain.WorktreeStats{{WorktreeID: "wt-1", Additions: 4}}
	d.lastLocal = &domain.LocalStats{Branch: "main", Commits: 2}

	m := NewModel(d, labels, Options{})

	require.NotNil(t, m.local)
	assert.Equal(t, "main", m.local.Branch)
	assert.Equal(t, d.last, m.worktrees)
	assert.False(t, m.updatedAt.IsZero())
}

func TestNewModel_WaitsWithoutValues(t *testing.T) {
	m := NewModel(newFakeDashboard(), labels, Options{})

	assert.Nil(t, m.local)
	assert.True(t, m.updatedAt.IsZero())
	assert.Contains(t, m.View(), "measuring...")
	assert.Contains(t, m.View(), "waiting for first measurement")
}

func TestModel_AppliesStatsMessages(t *testing.T) {
	m := NewModel(newFakeDashboard(), labels, Options{})
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	next, cmd := m.Update(WorktreeStatsMsg{Batch: []domain.WorktreeStats{{WorktreeID: "wt-1", Additions: 1, Deletions: 2, Commits: 3}}})
	m = next.(Model)
	assert.NotNil(t, cmd, "keeps listening")
	assert.Equal(t, fixed, m.updatedAt)

	next, cmd = m.Update(LocalStatsMsg{Batch: []domain.LocalStats{{Branch: "main", Additions: 7}}})
	m = next.(Model)
	assert.NotNil(t, cmd)
	require.NotNil(t, m.local)
	assert.Equal(t, 7, m.local.Additions)

	view := m.View()
	assert.Contains(t, view, "feature/login")
	assert.Contains(t, view, "/ws/login")
	assert.Contains(t, view, "+1")
	assert.Contains(t, view, "-2")
	assert.Contains(t, view, "↑3")
	assert.Contains(t, view, "main")
	assert.Contains(t, view, "just now")
}

func TestModel_StopsListeningWhenClosed(t *testing.T) {
	m := NewModel(newFakeDashboard(), labels, Options{})

	_, cmd := m.Update(WorktreeStatsMsg{closed: true})
	assert.Nil(t, cmd)

	_, cmd = m.Update(LocalStatsMsg{closed: true})
	assert.Nil(t, cmd)
}

func TestModel_UnknownWorktreeShowsID(t *testing.T) {
	m := NewModel(newFakeDashboard(), ports.WorktreeSourceFunc(func() []domain.Worktree { return nil }), Options{})

	next, _ := m.Update(WorktreeStatsMsg{Batch: []domain.WorktreeStats{{WorktreeID: "gone"}}})

	assert.Contains(t, next.View(), "gone")
}

func TestModel_NoWorktrees(t *testing.T) {
	m := NewModel(newFakeDashboard(), ports.WorktreeSourceFunc(func() []domain.Worktree { return nil }), Options{})

	assert.Contains(t, m.View(), "no worktrees")
}

func TestModel_Keys(t *testing.T) {
	t.Run("refresh triggers a tick", func(t *testing.T) {
		d := newFakeDashboard()
		m := NewModel(d, labels, Options{})

		m.Update(keyMsg("r"))

		assert.Equal(t, 1, d.triggered)
	})

	t.Run("pause toggles polling", func(t *testing.T) {
		d := newFakeDashboard()
		m := NewModel(d, labels, Options{})

		m.Update(keyMsg("p"))
		assert.False(t, d.enabled)
		assert.Contains(t, m.View(), "paused")

		m.Update(keyMsg("p"))
		assert.True(t, d.enabled)
	})

	t.Run("pause is disabled when read only", func(t *testing.T) {
		d := newFakeDashboard()
		m := NewModel(d, labels, Options{ReadOnly: true})

		m.Update(keyMsg("p"))

		assert.True(t, d.enabled)
	})

	t.Run("quit", func(t *testing.T) {
		m := NewModel(newFakeDashboard(), labels, Options{})

		_, cmd := m.Update(keyMsg("q"))

		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	})
}

func TestModel_CloseUnsubscribes(t *testing.T) {
	d := newFakeDashboard()
	m := NewModel(d, labels, Options{})

	m.Close()

	assert.Equal(t, 2, d.cancelled)
}

func TestFormatAge(t *testing.T) {
	assert.Equal(t, "just now", formatAge(time.Second))
	assert.Equal(t, "42s ago", formatAge(42*time.Second))
	assert.Equal(t, "3m ago", formatAge(3*time.Minute))
	assert.Equal(t, "2h ago", formatAge(2*time.Hour))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
