package tui

import "github.com/charmbracelet/bubbles/key"

// GlobalKeys are active whenever no overlay is open.
type GlobalKeys struct {
	Quit    key.Binding
	Help    key.Binding
	Toggle  key.Binding
	Open    key.Binding
	Icon    key.Binding
	Close   key.Binding
	Retitle key.Binding
	Menu    key.Binding
	Ping    key.Binding
}

var globalKeys = GlobalKeys{
	Quit: key.NewBinding(
		key.WithKeys("ctrl+q", "ctrl+c"),
		key.WithHelp("Ctrl+q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?", "ctrl+h"),
		key.WithHelp("?", "help"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "show/hide main"),
	),
	Open: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "open main"),
	),
	Icon: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "change icon"),
	),
	Close: key.NewBinding(
		key.WithKeys("w", "ctrl+w"),
		key.WithHelp("w", "close window"),
	),
	Retitle: key.NewBinding(
		key.WithKeys("alt+1"),
		key.WithHelp("Alt+1", "retitle"),
	),
	Menu: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "toggle menu"),
	),
	Ping: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "ping backend"),
	),
}

// ConfirmKeys are active while a confirmation is shown.
type ConfirmKeys struct {
	Yes key.Binding
	No  key.Binding
}

var confirmKeys = ConfirmKeys{
	Yes: key.NewBinding(
		key.WithKeys("y", "Y", "enter"),
		key.WithHelp("y", "yes"),
	),
	No: key.NewBinding(
		key.WithKeys("n", "N", "esc"),
		key.WithHelp("n", "no"),
	),
}

// helpCloseKeys close the help overlay.
var helpCloseKeys = key.NewBinding(
	key.WithKeys("esc", "?", "ctrl+h"),
)
