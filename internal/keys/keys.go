package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the board keybindings.
type KeyMap struct {
	// Navigation
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding

	// Boards
	NextBoard   key.Binding
	PrevBoard   key.Binding
	NewBoard    key.Binding
	RenameBoard key.Binding
	DeleteBoard key.Binding

	// Lists
	NewList    key.Binding
	RenameList key.Binding
	DeleteList key.Binding

	// Tasks
	NewTask    key.Binding
	EditTask   key.Binding
	DeleteTask key.Binding

	// Drag
	Grab   key.Binding
	Drop   key.Binding
	Cancel key.Binding

	Theme key.Binding
	Help  key.Binding
	Quit  key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "prev list"),
		),
		Right: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "next list"),
		),
		NextBoard: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next board"),
		),
		PrevBoard: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev board"),
		),
		NewBoard: key.NewBinding(
			key.WithKeys("B"),
			key.WithHelp("B", "new board"),
		),
		RenameBoard: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "rename board"),
		),
		DeleteBoard: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "delete board"),
		),
		NewList: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "new list"),
		),
		RenameList: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rename list"),
		),
		DeleteList: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "delete list"),
		),
		NewTask: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new task"),
		),
		EditTask: key.NewBinding(
			key.WithKeys("e", "enter"),
			key.WithHelp("e", "edit task"),
		),
		DeleteTask: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete task"),
		),
		Grab: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "pick up"),
		),
		Drop: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "drop"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Theme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "toggle theme"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Left, k.Right, k.NewTask, k.EditTask,
		k.Grab, k.Help, k.Quit,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.NewTask, k.EditTask, k.DeleteTask, k.Grab, k.Drop, k.Cancel},
		{k.NewList, k.RenameList, k.DeleteList},
		{k.NextBoard, k.PrevBoard, k.NewBoard, k.RenameBoard, k.DeleteBoard},
		{k.Theme, k.Help, k.Quit},
	}
}
