// Package ui holds the key bindings shared by the dashboard.
package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keyboard bindings for the application
type KeyMap struct {
	Quit  key.Binding
	Help  key.Binding
	Close key.Binding

	// Chart selection
	NextChart key.Binding
	PrevChart key.Binding

	// Selected chart actions
	NextWindow key.Binding
	PrevWindow key.Binding
	Reload     key.Binding

	DebugLog key.Binding
}

// DefaultKeyMap returns the default keyboard bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close dialog"),
		),
		NextChart: key.NewBinding(
			key.WithKeys("tab", "j", "down"),
			key.WithHelp("tab", "next chart"),
		),
		PrevChart: key.NewBinding(
			key.WithKeys("shift+tab", "k", "up"),
			key.WithHelp("shift+tab", "previous chart"),
		),
		NextWindow: key.NewBinding(
			key.WithKeys("w", "+"),
			key.WithHelp("w", "longer window"),
		),
		PrevWindow: key.NewBinding(
			key.WithKeys("W", "-"),
			key.WithHelp("W", "shorter window"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload chart"),
		),
		DebugLog: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "debug log"),
			key.WithDisabled(),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextChart, k.NextWindow, k.Reload, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextChart, k.PrevChart},
		{k.NextWindow, k.PrevWindow, k.Reload},
		{k.Help, k.Close, k.DebugLog, k.Quit},
	}
}
