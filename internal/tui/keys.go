package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the dashboard key bindings
type keyMap struct {
	Power        key.Binding
	TempUp       key.Binding
	TempDown     key.Binding
	Mode         key.Binding
	Fan          key.Binding
	Swing        key.Binding
	Screen       key.Binding
	AuxHeat      key.Binding
	Refresh      key.Binding
	RefreshToken key.Binding
	Help         key.Binding
	Quit         key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Power, k.TempUp, k.TempDown, k.Mode, k.Refresh, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Power, k.TempUp, k.TempDown, k.Mode},
		{k.Fan, k.Swing, k.Screen, k.AuxHeat},
		{k.Refresh, k.RefreshToken, k.Help, k.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Power: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "power"),
		),
		TempUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "warmer"),
		),
		TempDown: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "cooler"),
		),
		Mode: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mode"),
		),
		Fan: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "fan"),
		),
		Swing: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "swing"),
		),
		Screen: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "display"),
		),
		AuxHeat: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "aux heat"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		RefreshToken: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "renew token"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
