package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada-remote/internal/form"
	"github.com/Makepad-fr/tada-remote/internal/model"
	"github.com/Makepad-fr/tada-remote/internal/notify"
	"github.com/Makepad-fr/tada-remote/internal/ui"
)

// maxDescWidth caps a description in `ls`, in terminal cells.
const maxDescWidth = 80

// errUsage marks bad command-line input so it is shown as typed.
var errUsage = errors.New("usage")

func message(err error) string {
	if errors.Is(err, errUsage) {
		return strings.TrimPrefix(err.Error(), errUsage.Error()+": ")
	}
	return notify.Message(err)
}

// -------------- subcommands ----------------

func newListCmd(app *App) *cobra.Command {
	var status string
	var group bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List todos, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := model.ParseFilter(status)
			if err != nil {
				return fmt.Errorf("%w: %v", errUsage, err)
			}
			all, err := app.store.Refresh(cmd.Context(), model.FilterAll)
			if err != nil {
				return err
			}
			shown := all
			if f != model.FilterAll {
				// The filtered query decides what is shown; numbers still
				// come from the unfiltered list so done/rm accept them.
				if shown, err = app.store.Refresh(cmd.Context(), f); err != nil {
					return err
				}
			}
			doList(cmd.OutOrStdout(), all, number(all, shown), f, group)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "all", "Show only todos with this status (all|pending|completed)")
	cmd.Flags().BoolVar(&group, "group", false, "Group output by pending/completed")
	return cmd
}

func newAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <description...>",
		Short: "Add a pending todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fc form.Controller
			_ = fc.OpenCreate()
			fc.SetDescription(strings.Join(args, " "))
			if err := fc.Submit(cmd.Context(), app.store); err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), "added")
			return nil
		},
	}
}

func newEditCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <index|id> <description...>",
		Short: "Replace a todo's description",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var fc form.Controller
			_ = fc.OpenEdit(t)
			fc.SetDescription(strings.Join(args[1:], " "))
			if err := fc.Submit(cmd.Context(), app.store); err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), "updated")
			return nil
		},
	}
}

func newDoneCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "done <index|id>",
		Short: "Toggle a todo between pending and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := app.store.SetStatus(cmd.Context(), t); err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), "toggled")
			return nil
		},
	}
}

func newRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <index|id>",
		Short: "Delete a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := app.store.Delete(cmd.Context(), t.ID); err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), "removed")
			return nil
		},
	}
}

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Upload a CSV file to the remote store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tc := app.transfer()
			tc.OpenUpload()
			tc.Select(args[0])
			if err := tc.SubmitUpload(cmd.Context(), app.store); err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("imported %s (%d todos total)", args[0], len(app.store.Todos())))
			return nil
		},
	}
}

func newExportCmd(app *App) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download every todo as todos.csv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = app.cfg.DownloadDir
			}
			path, err := app.transfer().Download(cmd.Context(), dir)
			if err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), "saved to "+path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Directory to save todos.csv in (default: download_dir from config)")
	return cmd
}

// resolve maps a 1-based index into the unfiltered `ls` order, or an id, to a todo.
func (a *App) resolve(ctx context.Context, arg string) (model.Todo, error) {
	todos, err := a.store.Refresh(ctx, model.FilterAll)
	if err != nil {
		return model.Todo{}, err
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(todos) {
			return model.Todo{}, fmt.Errorf("%w: index out of range: have %d, got %d (run `todo ls` to see valid indexes)", errUsage, len(todos), n)
		}
		return todos[n-1], nil
	}
	for _, t := range todos {
		if t.ID == arg {
			return t, nil
		}
	}
	return model.Todo{}, fmt.Errorf("%w: no todo with id %q", errUsage, arg)
}

// -------------- rendering helpers --------------

type numbered struct {
	index int
	todo  model.Todo
}

// number pairs each shown todo with its 1-based position in all. Todos
// missing from all (created between the two queries) are left out.
func number(all, shown []model.Todo) []numbered {
	pos := make(map[string]int, len(all))
	for i, t := range all {
		pos[t.ID] = i + 1
	}
	out := make([]numbered, 0, len(shown))
	for _, t := range shown {
		if i, ok := pos[t.ID]; ok {
			out = append(out, numbered{index: i, todo: t})
		}
	}
	return out
}

func doList(w io.Writer, todos []model.Todo, shown []numbered, f model.Filter, group bool) {

	th := ui.Current()
	d, p := model.Stats(todos)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		ui.C(th.Title, "Todos"),
		ui.C(th.Success, "✔"), d,
		ui.C(th.Pending, "•"), p,
		ui.C(th.Accent, "Total"), len(todos),
	)
	if f != model.FilterAll {
		header += "  " + ui.C(th.Muted, "["+f.String()+"]")
	}

	var lines []string
	lines = append(lines, header)
	lines = append(lines, ui.C(th.Muted, ui.ProgressBar(d, d+p, 28)))
	lines = append(lines, "")

	if group {
		lines = append(lines, groupLines(shown)...)
	} else {
		lines = append(lines, flatLines(shown)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(th.Muted, "Tip: add with `todo add \"Buy milk\"`"))
	ui.Panel(w, lines)
}

func flatLines(rows []numbered) []string {
	if len(rows) == 0 {
		return []string{ui.C(ui.Current().Muted, "no todos")}
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		t := r.todo
		t.Description = ansi.Truncate(t.Description, maxDescWidth, "...")
		out = append(out, ui.TodoLine(r.index, t))
	}
	return out
}

func groupLines(rows []numbered) []string {
	var pend, done []numbered
	for _, r := range rows {
		if r.todo.Done() {
			done = append(done, r)
		} else {
			pend = append(pend, r)
		}
	}
	var lines []string
	lines = append(lines, ui.C(ui.Current().Accent, "Pending"))
	if len(pend) == 0 {
		lines = append(lines, ui.C(ui.Current().Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(pend)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(ui.Current().Accent, "Completed"))
	if len(done) == 0 {
		lines = append(lines, ui.C(ui.Current().Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(done)...)
	}
	return lines
}
