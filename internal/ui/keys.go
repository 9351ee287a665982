package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the dashboard key bindings
type KeyMap struct {
	ForceQuit key.Binding
	Help      key.Binding
	Pause     key.Binding
	Quit      key.Binding
	Refresh   key.Binding
}

// DefaultKeyMap returns the default bindings. Pause is disabled for read-only dashboards.
func DefaultKeyMap(readOnly bool) KeyMap {
	km := KeyMap{
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "force quit")),
		Help:      key.NewBinding(key.WithKeys("?", "h"), key.WithHelp("?", "more keys")),
		Pause:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause/resume polling")),
		Quit:      key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh now")),
	}
	km.Pause.SetEnabled(!readOnly)
	return km
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Pause, k.Quit, k.Help}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Refresh, k.Pause},
		{k.Quit, k.ForceQuit, k.Help},
	}
}
