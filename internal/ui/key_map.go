package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	tab     key.Binding
	search  key.Binding
	kind    key.Binding
	refresh key.Binding
	toggle  key.Binding
	next    key.Binding
	prev    key.Binding
	stop    key.Binding
	login   key.Binding
	logout  key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open/play")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch view")),
		search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		kind:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter kind")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		next:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		prev:    key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "previous")),
		stop:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		login:   key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "sign in")),
		logout:  key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "sign out")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.tab, k.enter, k.toggle, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.tab, k.search, k.kind, k.refresh},
		{k.toggle, k.next, k.prev, k.stop},
		{k.login, k.logout, k.quit},
	}
}
