package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the application
type KeyMap struct {
	// Tabs
	NextTab key.Binding
	PrevTab key.Binding
	Hymns   key.Binding
	Songs   key.Binding
	Quiz    key.Binding

	// Lists
	Enter  key.Binding
	Filter key.Binding
	Escape key.Binding

	// Hymns
	ToggleKind key.Binding

	// Songs
	SeekBack    key.Binding
	SeekForward key.Binding
	Stop        key.Binding

	// Quiz
	NextYear key.Binding
	PrevYear key.Binding
	More     key.Binding

	Refresh key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-tab", "previous tab"),
		),
		Hymns: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "hymns"),
		),
		Songs: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "songs"),
		),
		Quiz: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "quiz"),
		),

		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open/play/pause"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close/clear"),
		),

		ToggleKind: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "TSP/Psalms"),
		),

		SeekBack: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "back 10s"),
		),
		SeekForward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "forward 10s"),
		),
		Stop: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop"),
		),

		NextYear: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next year"),
		),
		PrevYear: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "previous year"),
		),
		More: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "load more"),
		),

		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Keys is the global key bindings instance
var Keys = DefaultKeyMap()
