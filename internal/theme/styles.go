package theme

import "github.com/charmbracelet/lipgloss"

// Main UI styles
var (
	BranchStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	HelpLabelStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	HelpShortcutStyle = lipgloss.NewStyle().
				Foreground(ColorHighlight).
				Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(1, 0)

	NormalStyle = lipgloss.NewStyle().
			Foreground(ColorNormal)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary).
			MarginTop(1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Padding(1, 0)
)

// Git diff styles
var (
	AdditionsStyle = lipgloss.NewStyle().
			Foreground(ColorAdditions)

	CommitsStyle = lipgloss.NewStyle().
			Foreground(ColorCommits)

	DeletionsStyle = lipgloss.NewStyle().
			Foreground(ColorDeletions)
)

// Header styles
var (
	AppNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	TaglineStyle = lipgloss.NewStyle().
			Foreground(ColorNormal)

	VersionStyle = lipgloss.NewStyle().
			Foreground(ColorVersion)
)

// Status line styles
var (
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	PausedStyle = lipgloss.NewStyle().
			Foreground(ColorPaused).
			Bold(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorSpinner)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)
)
