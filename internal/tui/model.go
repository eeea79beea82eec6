// Package tui is the interactive Bubble Tea client for the remote todo store.
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/tada-remote/internal/form"
	"github.com/Makepad-fr/tada-remote/internal/model"
	"github.com/Makepad-fr/tada-remote/internal/notify"
	"github.com/Makepad-fr/tada-remote/internal/store"
	"github.com/Makepad-fr/tada-remote/internal/store/jsonstore"
	"github.com/Makepad-fr/tada-remote/internal/transfer"
)

type mode int

const (
	modeList mode = iota
	modeForm
	modeUpload
)

const pickerHeight = 8

// Deps is everything the TUI needs from the outside.
type Deps struct {
	Store    *store.Store
	Transfer *transfer.Controller
	Logger   *slog.Logger

	// Exports are saved here as todos.csv.
	DownloadDir string

	// Session state restored on start. StatePath "" disables saving.
	State     jsonstore.State
	StatePath string

	// Copy writes to the clipboard. Nil means the system clipboard.
	Copy func(string) error
}

// Model is the Bubble Tea model of the whole client.
type Model struct {
	ctx         context.Context
	store       *store.Store
	transfer    *transfer.Controller
	logger      *slog.Logger
	downloadDir string
	statePath   string
	state       jsonstore.State
	copy        func(string) error

	mode    mode
	list    list.Model
	ti      textinput.Model // description input of the form modal
	form    form.Controller
	picker  filepicker.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	banner notify.Banner
	notice string

	filter     model.Filter
	inflight   int
	formBusy   bool
	uploadBusy bool
	version    uint64

	width, height int
}

// New builds the model. Init issues the first refresh with the restored filter.
func New(ctx context.Context, d Deps) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	filter, err := model.ParseFilter(string(d.State.Filter))
	if err != nil {
		filter = model.FilterAll
	}

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.Styles.PaginationStyle = helpStyle
	l.SetStatusBarItemName("todo", "todos")

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle

	m := Model{
		ctx:         ctx,
		store:       d.Store,
		transfer:    d.Transfer,
		logger:      logger,
		downloadDir: d.DownloadDir,
		statePath:   d.StatePath,
		state:       d.State,
		copy:        d.Copy,
		list:        l,
		ti:          ti,
		spinner:     sp,
		help:        help.New(),
		keys:        defaultKeys(),
		filter:      filter,
		inflight:    1, // the refresh Init starts
		width:       80,
		height:      24,
	}
	m.resize()
	return m
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, d Deps) error {
	p := tea.NewProgram(New(ctx, d), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(refreshCmd(m.ctx, m.store, m.filter), m.spinner.Tick)
}

// Update and View implement Bubble Tea's Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	next.syncList()
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case spinner.TickMsg:
		if m.inflight == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case refreshedMsg:
		m.end()
		m.result(msg.err)
		return m, nil

	case mutatedMsg:
		m.end()
		m.result(msg.err)
		if store.Committed(msg.err) {
			m.notice = noticeFor(msg.op)
		}
		return m, nil

	case formDoneMsg:
		m.end()
		current := m.form.Owns(msg.sub)
		err := m.form.Finish(msg.sub, msg.err)
		if current {
			m.formBusy = false
			if !m.form.Open() && m.mode == modeForm {
				m.closeForm()
			}
		}
		m.result(err)
		if store.Committed(msg.err) {
			m.notice = "saved"
		}
		return m, nil

	case uploadedMsg:
		m.end()
		m.uploadBusy = false
		err := m.transfer.FinishUpload(msg.err)
		if !m.transfer.UploadOpen() && m.mode == modeUpload {
			m.mode = modeList
			m.resize()
		}
		m.result(err)
		if err == nil || model.IsOp(err, model.OpFetch) {
			m.notice = "imported"
		}
		return m, nil

	case downloadedMsg:
		m.end()
		m.result(msg.err)
		if msg.err == nil {
			m.notice = "saved to " + msg.path
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.banner.Set(fmt.Errorf("copy id: %w", msg.err))
			return m, nil
		}
		m.notice = "copied " + msg.id
		return m, nil
	}

	switch m.mode {
	case modeForm:
		return m.updateForm(msg)
	case modeUpload:
		return m.updateUpload(msg)
	}
	return m.updateList(msg)
}

func (m Model) updateList(msg tea.Msg) (Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(k, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(k, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		return m, nil
	case key.Matches(k, m.keys.Add):
		if err := m.form.OpenCreate(); err != nil {
			return m, nil
		}
		return m, m.openForm("", "New todo...")
	case key.Matches(k, m.keys.Edit):
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		if err := m.form.OpenEdit(t); err != nil {
			return m, nil
		}
		return m, m.openForm(t.Description, "Edit todo...")
	case key.Matches(k, m.keys.Toggle):
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.begin(toggleCmd(m.ctx, m.store, t))
	case key.Matches(k, m.keys.Delete):
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.begin(deleteCmd(m.ctx, m.store, t.ID))
	case key.Matches(k, m.keys.Filter):
		return m, m.setFilter(m.filter.Next())
	case key.Matches(k, m.keys.All):
		return m, m.setFilter(model.FilterAll)
	case key.Matches(k, m.keys.Pending):
		return m, m.setFilter(model.FilterPending)
	case key.Matches(k, m.keys.Completed):
		return m, m.setFilter(model.FilterCompleted)
	case key.Matches(k, m.keys.Refresh):
		return m, m.begin(refreshCmd(m.ctx, m.store, m.filter))
	case key.Matches(k, m.keys.Upload):
		if m.uploadBusy {
			return m, nil
		}
		return m, m.openUpload()
	case key.Matches(k, m.keys.Save):
		return m, m.begin(downloadCmd(m.ctx, m.transfer, m.downloadDir))
	case key.Matches(k, m.keys.Copy):
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, copyCmd(m.copy, t.ID)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// ---- form modal ----

func (m *Model) openForm(value, placeholder string) tea.Cmd {
	m.mode = modeForm
	m.ti.SetValue(value)
	m.ti.CursorEnd()
	m.ti.Placeholder = placeholder
	m.resize()
	return m.ti.Focus()
}

func (m *Model) closeForm() {
	m.form.Cancel()
	m.formBusy = false
	m.ti.SetValue("")
	m.ti.Blur()
	m.mode = modeList
	m.resize()
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, m.keys.Submit):
			if m.formBusy {
				return m, nil
			}
			m.form.SetDescription(m.ti.Value())
			sub, err := m.form.Begin()
			if err != nil {
				m.banner.Set(err)
				return m, nil
			}
			m.formBusy = true
			return m, m.begin(submitCmd(m.ctx, m.store, sub))
		case key.Matches(k, m.keys.Cancel):
			m.closeForm()
			m.banner.Clear()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	m.form.SetDescription(m.ti.Value())
	return m, cmd
}

// ---- upload modal ----

func (m *Model) openUpload() tea.Cmd {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".csv"}
	fp.FileAllowed = true
	fp.DirAllowed = false
	fp.ShowHidden = false
	fp.ShowPermissions = false
	fp.ShowSize = true
	fp.AutoHeight = false
	fp.Height = pickerHeight
	fp.KeyMap.Back = key.NewBinding(
		key.WithKeys("h", "backspace", "left"),
		key.WithHelp("h", "up"),
	)
	fp.Styles.Cursor = accentStyle
	fp.Styles.Selected = accentStyle.Bold(true)
	fp.Styles.Directory = accentStyle
	fp.Styles.DisabledFile = mutedStyle
	fp.Styles.DisabledSelected = mutedStyle

	// Start where the last upload came from, else the working directory.
	startDir := strings.TrimSpace(m.state.UploadDir)
	if startDir == "" {
		if wd, err := os.Getwd(); err == nil {
			startDir = wd
		}
	}
	if startDir == "" {
		startDir = "."
	}
	fp.CurrentDirectory = startDir

	m.picker = fp
	m.transfer.OpenUpload()
	m.mode = modeUpload
	m.resize()
	return fp.Init()
}

func (m *Model) closeUpload() {
	m.transfer.CloseUpload()
	m.mode = modeList
	m.resize()
}

func (m Model) updateUpload(msg tea.Msg) (Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, m.keys.Cancel):
			m.closeUpload()
			m.banner.Clear()
			return m, nil
		case key.Matches(k, m.keys.SendUpload):
			return m.startUpload()
		}
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.transfer.Select(path)
		m.rememberUploadDir(filepath.Dir(path))
		next, up := m.startUpload()
		return next, tea.Batch(cmd, up)
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.notice = filepath.Base(path) + " is not a .csv file"
	}
	return m, cmd
}

func (m Model) startUpload() (Model, tea.Cmd) {
	if m.uploadBusy {
		return m, nil
	}
	up, err := m.transfer.BeginUpload()
	if err != nil {
		m.banner.Set(err)
		return m, nil
	}
	m.uploadBusy = true
	return m, m.begin(uploadCmd(m.ctx, m.transfer, m.store, up))
}

// ---- helpers ----

// begin counts cmd as an in-flight remote call and starts the spinner for the first one.
func (m *Model) begin(cmd tea.Cmd) tea.Cmd {
	m.inflight++
	if m.inflight == 1 {
		return tea.Batch(cmd, m.spinner.Tick)
	}
	return cmd
}

func (m *Model) end() {
	if m.inflight > 0 {
		m.inflight--
	}
}

// result updates the banner: failures replace it, success clears it.
func (m *Model) result(err error) {
	if err == nil {
		m.banner.Clear()
		return
	}
	m.banner.Set(err)
}

func (m *Model) setFilter(f model.Filter) tea.Cmd {
	m.filter = f
	m.state.Filter = f
	m.saveState()
	return m.begin(refreshCmd(m.ctx, m.store, f))
}

func (m *Model) rememberUploadDir(dir string) {
	if dir == "" || dir == m.state.UploadDir {
		return
	}
	m.state.UploadDir = dir
	m.saveState()
}

func (m *Model) saveState() {
	if m.statePath == "" {
		return
	}
	if err := jsonstore.Save(m.statePath, m.state); err != nil {
		m.logger.Warn("save tui state", "path", m.statePath, "error", err)
	}
}

func (m Model) selected() (model.Todo, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Todo{}, false
	}
	return it.todo, true
}

// syncList copies the store's list into the view when it changed.
func (m *Model) syncList() {
	v := m.store.Version()
	if v == m.version {
		return
	}
	m.version = v
	idx := m.list.Index()
	m.list.SetItems(toItems(m.store.Todos()))
	if n := len(m.list.Items()); n > 0 {
		if idx >= n {
			idx = n - 1
		}
		m.list.Select(idx)
	}
}

func (m *Model) resize() {
	reserved := 8
	if m.help.ShowAll {
		reserved += 3
	}
	switch m.mode {
	case modeForm:
		reserved += 4
	case modeUpload:
		reserved += pickerHeight + 5
	}
	h := m.height - reserved
	if h < 3 {
		h = 3
	}
	m.list.SetSize(m.width-4, h)
}

func noticeFor(op model.Op) string {
	switch op {
	case model.OpStatus:
		return "status updated"
	case model.OpDelete:
		return "deleted"
	}
	return string(op)
}

// ---- view ----

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(m.list.View())

	switch m.mode {
	case modeForm:
		b.WriteString("\n")
		b.WriteString(modalBox.Render(m.formView()))
	case modeUpload:
		b.WriteString("\n")
		b.WriteString(modalBox.Render(m.uploadView()))
	}

	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	if m.banner.Empty() {
		b.WriteString(" ")
	} else {
		b.WriteString(errorStyle.Render(m.banner.Message()))
	}
	b.WriteString("\n")
	if m.mode == modeList {
		b.WriteString(m.help.View(m.keys))
	} else {
		b.WriteString(helpStyle.Render(m.modalHelp()))
	}
	return panelString(b.String())
}

func (m Model) header() string {
	todos := m.store.Todos()
	dn, pn := model.Stats(todos)
	counts := fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), dn,
		pendingStyle.Render("•"), pn,
		accentStyle.Render("Total"), len(todos),
	)
	tabs := make([]string, 0, len(model.Filters))
	for _, f := range model.Filters {
		if f == m.filter {
			tabs = append(tabs, activeTab.Render(f.String()))
		} else {
			tabs = append(tabs, tabStyle.Render(f.String()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, counts, "   ", lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
}

func (m Model) formView() string {
	title := "Add todo"
	if m.form.State().Mode == form.Editing {
		title = "Edit todo"
	}
	if m.formBusy {
		title += " " + m.spinner.View()
	}
	return titleStyle.Render(title) + "\n" + m.ti.View()
}

func (m Model) uploadView() string {
	pending := m.transfer.Pending()
	if pending == "" {
		pending = mutedStyle.Render("no file selected")
	}
	return titleStyle.Render("Upload CSV") + "  " + mutedStyle.Render(m.picker.CurrentDirectory) +
		"\n" + m.picker.View() + "\n" + "File: " + pending
}

func (m Model) modalHelp() string {
	if m.mode == modeUpload {
		return "enter: select & upload   ctrl+s: upload selected   esc: cancel   h: up   l: open dir"
	}
	return "enter: submit   esc: cancel"
}

func (m Model) statusLine() string {
	var parts []string
	if m.inflight > 0 {
		parts = append(parts, m.spinner.View()+" working")
	}
	if m.notice != "" {
		parts = append(parts, mutedStyle.Render(m.notice))
	}
	if len(parts) == 0 {
		return " "
	}
	return strings.Join(parts, "  ")
}
