package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada-remote/internal/model"
	"github.com/Makepad-fr/tada-remote/internal/ui"
)

// listItem adapts a todo to bubbles/list.Item
type listItem struct {
	todo model.Todo
}

func (i listItem) Title() string       { return i.todo.Description }
func (i listItem) Description() string { return ui.Date(i.todo.ID) }
func (i listItem) FilterValue() string { return i.todo.Description }

func toItems(todos []model.Todo) []list.Item {
	out := make([]list.Item, 0, len(todos))
	for _, t := range todos {
		out = append(out, listItem{todo: t})
	}
	return out
}

// itemDelegate renders one line per todo: box, description, creation date.
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}

	box := mutedStyle.Render(boxUnchecked)
	text := it.todo.Description
	if it.todo.Done() {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}

	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintf(w, "%s%s %s  %s", prefix, box, text, mutedStyle.Render(it.Description()))
}
