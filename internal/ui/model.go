package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"wtpulse/internal/domain"
	"wtpulse/internal/logging"
	"wtpulse/internal/ports"
	"wtpulse/internal/theme"
)

// updatesBuffer is how many batches a slow dashboard may lag behind
const updatesBuffer = 1

// Dashboard is what the model needs from the workspace poller
type Dashboard interface {
	Enabled() bool
	LastLocalStats() (domain.LocalStats, bool)
	LastStats() []domain.WorktreeStats
	LocalUpdates(buffer int) (<-chan []domain.LocalStats, func())
	SetEnabled(enabled bool)
	TriggerNow()
	Updates(buffer int) (<-chan []domain.WorktreeStats, func())
}

// Options tunes the dashboard
type Options struct {
	DevMode  bool // Show version details in the header
	ReadOnly bool // Hide pause, used for remote sessions sharing one poller
}

// Model is the bubbletea model of the live dashboard
type Model struct {
	dashboard  Dashboard
	help       help.Model
	keys       KeyMap
	labels     ports.WorktreeSource
	local      *domain.LocalStats
	localCh    <-chan []domain.LocalStats
	now        func() time.Time
	opts       Options
	spinner    spinner.Model
	unsub      func()
	updatedAt  time.Time
	width      int
	worktreeCh <-chan []domain.WorktreeStats
	worktrees  []domain.WorktreeStats
}

// NewModel subscribes to dashboard and seeds the view with the last emitted values.
// Call Close once the program exits.
func NewModel(dashboard Dashboard, labels ports.WorktreeSource, opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = theme.SpinnerStyle

	worktreeCh, cancelWorktrees := dashboard.Updates(updatesBuffer)
	localCh, cancelLocal := dashboard.LocalUpdates(updatesBuffer)

	m := Model{
		dashboard:  dashboard,
		help:       help.New(),
		keys:       DefaultKeyMap(opts.ReadOnly),
		labels:     labels,
		localCh:    localCh,
		now:        time.Now,
		opts:       opts,
		spinner:    s,
		unsub:      func() { cancelWorktrees(); cancelLocal() },
		worktreeCh: worktreeCh,
		worktrees:  dashboard.LastStats(),
	}
	if local, ok := dashboard.LastLocalStats(); ok {
		m.local = &local
	}
	if m.local != nil || m.worktrees != nil {
		m.updatedAt = m.now()
	}
	return m
}

// Close unsubscribes from the dashboard. Safe to call repeatedly.
func (m Model) Close() {
	if m.unsub != nil {
		m.unsub()
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForWorktrees(m.worktreeCh),
		waitForLocal(m.localCh),
		clockTick(),
	)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case WorktreeStatsMsg:
		if msg.closed {
			return m, nil
		}
		m.worktrees = msg.Batch
		m.updatedAt = m.now()
		return m, waitForWorktrees(m.worktreeCh)

	case LocalStatsMsg:
		if msg.closed {
			return m, nil
		}
		if n := len(msg.Batch); n > 0 {
			local := msg.Batch[n-1]
			m.local = &local
			m.updatedAt = m.now()
		}
		return m, waitForLocal(m.localCh)

	case clockMsg:
		return m, clockTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.ForceQuit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Refresh):
		logging.Logger.Debug("Manual refresh requested")
		m.dashboard.TriggerNow()

	case key.Matches(msg, m.keys.Pause):
		enabled := !m.dashboard.Enabled()
		logging.Logger.Info("Toggling polling", "enabled", enabled)
		m.dashboard.SetEnabled(enabled)

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(renderHeader(m.opts.DevMode))

	b.WriteString(theme.SectionStyle.Render("Local branch"))
	b.WriteString("\n")
	b.WriteString(m.renderLocal())

	b.WriteString(theme.SectionStyle.Render("Worktrees"))
	b.WriteString("\n")
	b.WriteString(m.renderWorktrees())

	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())
	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m Model) renderLocal() string {
	if m.local == nil {
		return "  " + m.spinner.View() + theme.BranchStyle.Render(" measuring...") + "\n"
	}
	return fmt.Sprintf("  %s %s\n", branchColumn(m.local.Branch), formatStats(m.local.Additions, m.local.Deletions, m.local.Commits))
}

func (m Model) renderWorktrees() string {
	known := make(map[string]domain.Worktree)
	for _, wt := range m.labels.Worktrees() {
		known[wt.ID] = wt
	}

	if len(m.worktrees) == 0 {
		if len(known) == 0 {
			return theme.BranchStyle.Render("  no worktrees") + "\n"
		}
		return "  " + m.spinner.View() + theme.BranchStyle.Render(" measuring...") + "\n"
	}

	var b strings.Builder
	for _, s := range m.worktrees {
		name, location := s.WorktreeID, ""
		if wt, ok := known[s.WorktreeID]; ok {
			name = wt.Branch
			if name == "" {
				name = filepath.Base(wt.Path)
			}
			location = theme.BranchStyle.Render(wt.Path)
		}
		fmt.Fprintf(&b, "  %s %s  %s\n", branchColumn(name), formatStats(s.Additions, s.Deletions, s.Commits), location)
	}
	return b.String()
}

func (m Model) renderStatusLine() string {
	var parts []string
	if !m.dashboard.Enabled() {
		parts = append(parts, theme.PausedStyle.Render("paused"))
	}
	if m.updatedAt.IsZero() {
		parts = append(parts, theme.TimestampStyle.Render("waiting for first measurement"))
	} else {
		parts = append(parts, theme.TimestampStyle.Render("updated "+formatAge(m.now().Sub(m.updatedAt))))
	}
	return strings.Join(parts, "  ")
}

// branchColumn pads names so the stats line up
func branchColumn(name string) string {
	return theme.NormalStyle.Width(28).Render(truncate(name, 27))
}

func truncate(s string, max int) string {
	if lipgloss.Width(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

// formatStats renders "+adds -dels ↑commits"
func formatStats(additions, deletions, commits int) string {
	return theme.AdditionsStyle.Render(fmt.Sprintf("+%d", additions)) + " " +
		theme.DeletionsStyle.Render(fmt.Sprintf("-%d", deletions)) + " " +
		theme.CommitsStyle.Render(fmt.Sprintf("↑%d", commits))
}

func formatAge(d time.Duration) string {
	switch {
	case d < 2*time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}
