package tui

import (
	"context"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada-remote/internal/form"
	"github.com/Makepad-fr/tada-remote/internal/model"
	"github.com/Makepad-fr/tada-remote/internal/store"
	"github.com/Makepad-fr/tada-remote/internal/transfer"
)

// Messages carrying the result of a remote call back into Update.
type refreshedMsg struct{ err error }

type mutatedMsg struct {
	op  model.Op
	err error
}

type formDoneMsg struct {
	sub form.Submission
	err error
}

type uploadedMsg struct{ err error }

type downloadedMsg struct {
	path string
	err  error
}

type copiedMsg struct {
	id  string
	err error
}

func refreshCmd(ctx context.Context, st *store.Store, f model.Filter) tea.Cmd {
	return func() tea.Msg {
		_, err := st.Refresh(ctx, f)
		return refreshedMsg{err: err}
	}
}

func toggleCmd(ctx context.Context, st *store.Store, t model.Todo) tea.Cmd {
	return func() tea.Msg {
		return mutatedMsg{op: model.OpStatus, err: st.SetStatus(ctx, t)}
	}
}

func deleteCmd(ctx context.Context, st *store.Store, id string) tea.Cmd {
	return func() tea.Msg {
		return mutatedMsg{op: model.OpDelete, err: st.Delete(ctx, id)}
	}
}

func submitCmd(ctx context.Context, st *store.Store, sub form.Submission) tea.Cmd {
	return func() tea.Msg {
		return formDoneMsg{sub: sub, err: sub.Do(ctx, st)}
	}
}

func uploadCmd(ctx context.Context, tc *transfer.Controller, st *store.Store, up transfer.Upload) tea.Cmd {
	return func() tea.Msg {
		return uploadedMsg{err: up.Do(ctx, tc.Remote(), st)}
	}
}

func downloadCmd(ctx context.Context, tc *transfer.Controller, dir string) tea.Cmd {
	return func() tea.Msg {
		path, err := tc.Download(ctx, dir)
		return downloadedMsg{path: path, err: err}
	}
}

func copyCmd(write func(string) error, id string) tea.Cmd {
	if write == nil {
		write = clipboard.WriteAll
	}
	return func() tea.Msg {
		return copiedMsg{id: id, err: write(id)}
	}
}
