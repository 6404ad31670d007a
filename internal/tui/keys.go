package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	MoveUp   key.Binding
	MoveDown key.Binding
	Pick     key.Binding
	Drop     key.Binding
	Cancel   key.Binding
	Cascade  key.Binding
	Edit     key.Binding
	Delete   key.Binding
	Undo     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		MoveUp:   key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move up")),
		MoveDown: key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move down")),
		Pick:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "pick up")),
		Drop:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "drop here")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Cascade:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cascade area")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit title")),
		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Undo:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo delete")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.MoveDown, k.Pick, k.Delete, k.Undo, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Down, k.Up, k.MoveDown, k.MoveUp},
		{k.Pick, k.Drop, k.Cancel, k.Cascade},
		{k.Edit, k.Delete, k.Undo},
		{k.Help, k.Quit},
	}
}
