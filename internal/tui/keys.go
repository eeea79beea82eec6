package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Add       key.Binding
	Edit      key.Binding
	Toggle    key.Binding
	Delete    key.Binding
	Filter    key.Binding
	All       key.Binding
	Pending   key.Binding
	Completed key.Binding
	Refresh   key.Binding
	Upload    key.Binding
	Save      key.Binding
	Copy      key.Binding
	Help      key.Binding
	Quit      key.Binding

	// modal keys
	Submit     key.Binding
	Cancel     key.Binding
	SendUpload key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Filter:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "filter")),
		All:       key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "all")),
		Pending:   key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "pending")),
		Completed: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "completed")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Upload:    key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload csv")),
		Save:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save csv")),
		Copy:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		SendUpload: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "upload selected")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Edit, k.Toggle, k.Delete, k.Filter, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Add, k.Edit, k.Toggle, k.Delete},
		{k.Filter, k.All, k.Pending, k.Completed, k.Refresh},
		{k.Upload, k.Save, k.Copy, k.Help, k.Quit},
	}
}
