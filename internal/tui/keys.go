package tui

import "github.com/charmbracelet/bubbles/v2/key"

// KeyMap defines the key bindings for the plugin manager.
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Install   key.Binding
	Uninstall key.Binding
	Upgrade   key.Binding
	Cancel    key.Binding
	CancelAll key.Binding
	Export    key.Binding
	Import    key.Binding
	Refresh   key.Binding
	Add       key.Binding
	Quit      key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Install: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "install"),
		),
		Uninstall: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "uninstall"),
		),
		Upgrade: key.NewBinding(
			key.WithKeys("U"),
			key.WithHelp("U", "upgrade"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cancel job"),
		),
		CancelAll: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "cancel all"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export list"),
		),
		Import: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "import list"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "install by name"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
