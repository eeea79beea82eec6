package tui

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gin-gonic/gin"
	"github.com/muesli/termenv"

	"github.com/Makepad-fr/tada-remote/internal/model"
	"github.com/Makepad-fr/tada-remote/internal/remote"
	"github.com/Makepad-fr/tada-remote/internal/server"
	"github.com/Makepad-fr/tada-remote/internal/storage/sqlite"
	"github.com/Makepad-fr/tada-remote/internal/store"
	"github.com/Makepad-fr/tada-remote/internal/store/jsonstore"
	"github.com/Makepad-fr/tada-remote/internal/transfer"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type harness struct {
	client    *remote.Client
	store     *store.Store
	dir       string
	statePath string
	copied    *string
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// newHarness wires the TUI to a real reference server backed by a temp sqlite file.
func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(filepath.Join(dir, "todos.db"), quiet)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ts := httptest.NewServer(server.New(db, quiet, nil).Engine())
	t.Cleanup(ts.Close)

	client := remote.New(ts.URL)
	return &harness{
		client:    client,
		store:     store.New(client),
		dir:       dir,
		statePath: filepath.Join(dir, "state.json"),
		copied:    new(string),
	}
}

func (h *harness) model(t *testing.T) Model {
	t.Helper()
	st, err := jsonstore.Load(h.statePath)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	copied := h.copied
	m := New(context.Background(), Deps{
		Store:       h.store,
		Transfer:    transfer.New(h.client, quiet),
		Logger:      quiet,
		DownloadDir: filepath.Join(h.dir, "exports"),
		State:       st,
		StatePath:   h.statePath,
		Copy: func(s string) error {
			*copied = s
			return nil
		},
	})
	m.ti.Cursor.SetMode(cursor.CursorStatic)
	return drive(t, m, m.Init())
}

// drive runs cmd and every command it leads to, feeding results back into m.
// Spinner ticks are dropped so the loop settles.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 200 {
			t.Fatal("commands did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil, spinner.TickMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			next, more := m.Update(msg)
			m = next.(Model)
			queue = append(queue, more)
		}
	}
	return m
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(k)
		m = drive(t, next.(Model), cmd)
	}
	return m
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	keySend  = tea.KeyMsg{Type: tea.KeyCtrlS}
)

func items(m Model) []model.Todo {
	var out []model.Todo
	for _, it := range m.list.Items() {
		out = append(out, it.(listItem).todo)
	}
	return out
}

func TestInitLoadsExistingTodos(t *testing.T) {
	h := newHarness(t)
	if _, err := h.client.Create(context.Background(), "walk dog"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	m := h.model(t)

	got := items(m)
	if len(got) != 1 || got[0].Description != "walk dog" {
		t.Fatalf("unexpected items %+v", got)
	}
	if m.inflight != 0 {
		t.Fatalf("inflight should settle to 0, got %d", m.inflight)
	}
	if v := m.View(); !strings.Contains(v, "walk dog") || !strings.Contains(v, "Todos") {
		t.Fatalf("view missing content:\n%s", v)
	}
}

func TestAddBuyMilk(t *testing.T) {
	h := newHarness(t)
	m := h.model(t)

	m = press(t, m, runes("a"))
	if m.mode != modeForm {
		t.Fatalf("expected form mode, got %v", m.mode)
	}
	m = press(t, m, runes("buy milk"), keyEnter)

	if m.mode != modeList || m.form.Open() {
		t.Fatalf("form should close after a successful create")
	}
	got := items(m)
	if len(got) != 1 || got[0].Description != "buy milk" || got[0].Status != model.StatusPending {
		t.Fatalf("unexpected items %+v", got)
	}
	if _, err := model.CreatedAt(got[0].ID); err != nil {
		t.Fatalf("id should carry a timestamp: %v", err)
	}
	if !m.banner.Empty() {
		t.Fatalf("unexpected banner %q", m.banner.Message())
	}
}

func TestEmptyDescriptionKeepsFormOpen(t *testing.T) {
	h := newHarness(t)
	m := h.model(t)

	m = press(t, m, runes("a"), runes("   "), keyEnter)
	if m.mode != modeForm {
		t.Fatalf("form should stay open")
	}
	if m.banner.Message() != "Description cannot be empty." {
		t.Fatalf("unexpected banner %q", m.banner.Message())
	}
	if len(items(m)) != 0 {
		t.Fatalf("nothing should have been created")
	}

	m = press(t, m, keyEsc)
	if m.mode != modeList || m.form.Open() || !m.banner.Empty() {
		t.Fatalf("esc should close the form and clear the banner")
	}
}

func TestEditToggleDelete(t *testing.T) {
	h := newHarness(t)
	if _, err := h.client.Create(context.Background(), "buy milk"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	m := h.model(t)

	m = press(t, m, runes("e"))
	if m.ti.Value() != "buy milk" {
		t.Fatalf("edit should prefill the description, got %q", m.ti.Value())
	}
	m = press(t, m, runes(" and eggs"), keyEnter)
	if got := items(m); len(got) != 1 || got[0].Description != "buy milk and eggs" {
		t.Fatalf("unexpected items after edit %+v", got)
	}

	m = press(t, m, keySpace)
	if got := items(m); got[0].Status != model.StatusCompleted || got[0].Description != "buy milk and eggs" {
		t.Fatalf("unexpected items after toggle %+v", got)
	}

	m = press(t, m, runes("d"))
	if got := items(m); len(got) != 0 {
		t.Fatalf("expected empty list after delete, got %+v", got)
	}
	if m.notice != "deleted" {
		t.Fatalf("unexpected notice %q", m.notice)
	}
}

func TestFilterCyclesAndPersists(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	done, _ := h.client.Create(ctx, "done thing")
	done.Status = model.StatusCompleted
	if _, err := h.client.Replace(ctx, done); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := h.client.Create(ctx, "open thing"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	m := h.model(t)
	if len(items(m)) != 2 {
		t.Fatalf("expected 2 todos")
	}

	m = press(t, m, keyTab)
	if m.filter != model.FilterPending {
		t.Fatalf("expected pending, got %s", m.filter)
	}
	if got := items(m); len(got) != 1 || got[0].Description != "open thing" {
		t.Fatalf("pending list %+v", got)
	}

	m = press(t, m, runes("3"))
	if got := items(m); len(got) != 1 || got[0].Description != "done thing" {
		t.Fatalf("completed list %+v", got)
	}

	st, err := jsonstore.Load(h.statePath)
	if err != nil || st.Filter != model.FilterCompleted {
		t.Fatalf("state not persisted: %+v, %v", st, err)
	}

	// A new session restores the filter.
	m2 := h.model(t)
	if m2.filter != model.FilterCompleted || len(items(m2)) != 1 {
		t.Fatalf("filter not restored")
	}
}

func TestUploadWithoutFile(t *testing.T) {
	h := newHarness(t)
	m := h.model(t)

	m = press(t, m, runes("u"))
	if m.mode != modeUpload {
		t.Fatalf("expected upload mode")
	}
	m = press(t, m, keySend)
	if m.banner.Message() != "No file selected." {
		t.Fatalf("unexpected banner %q", m.banner.Message())
	}
	if m.mode != modeUpload {
		t.Fatalf("modal should stay open")
	}
	m = press(t, m, keyEsc)
	if m.mode != modeList || m.transfer.UploadOpen() {
		t.Fatalf("esc should close the upload modal")
	}
}

func TestUploadPickedFile(t *testing.T) {
	h := newHarness(t)
	csvDir := filepath.Join(h.dir, "import")
	if err := os.MkdirAll(csvDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(csvDir, "todos.csv"), []byte("description,status\nwater plants,pending\nfile taxes,completed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := jsonstore.Save(h.statePath, jsonstore.State{Filter: model.FilterAll, UploadDir: csvDir}); err != nil {
		t.Fatal(err)
	}
	m := h.model(t)

	m = press(t, m, runes("u"), keyEnter)
	if m.mode != modeList {
		t.Fatalf("upload modal should close after import, banner=%q", m.banner.Message())
	}
	if got := items(m); len(got) != 2 {
		t.Fatalf("expected 2 imported todos, got %+v", got)
	}
	if m.notice != "imported" {
		t.Fatalf("unexpected notice %q", m.notice)
	}
}

func TestSaveExportAndCopyID(t *testing.T) {
	h := newHarness(t)
	created, err := h.client.Create(context.Background(), "buy milk")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	m := h.model(t)

	m = press(t, m, runes("s"))
	path := filepath.Join(h.dir, "exports", transfer.FileName)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("export not written: %v", err)
	}
	if !strings.Contains(string(b), "buy milk") {
		t.Fatalf("unexpected export:\n%s", b)
	}
	if m.notice != "saved to "+path {
		t.Fatalf("unexpected notice %q", m.notice)
	}

	m = press(t, m, runes("y"))
	if *h.copied != created.ID {
		t.Fatalf("copied %q, want %q", *h.copied, created.ID)
	}
}

func TestUnreachableRemoteShowsBanner(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	client := remote.New(url)
	m := New(context.Background(), Deps{Store: store.New(client), Transfer: transfer.New(client, nil)})
	m = drive(t, m, m.Init())

	if m.banner.Message() != "Failed to fetch todos." {
		t.Fatalf("unexpected banner %q", m.banner.Message())
	}
	if !strings.Contains(m.View(), "Failed to fetch todos.") {
		t.Fatalf("banner not rendered")
	}
}

func TestDelegateRendersUnknownDate(t *testing.T) {
	l := New(context.Background(), Deps{Store: store.New(nil)}).list
	var buf bytes.Buffer
	itemDelegate{}.Render(&buf, l, 0, listItem{todo: model.Todo{ID: "bad", Description: "odd one", Status: model.StatusPending}})
	out := buf.String()
	if !strings.Contains(out, "odd one") || !strings.Contains(out, "unknown date") || !strings.Contains(out, boxUnchecked) {
		t.Fatalf("unexpected row %q", out)
	}
}

func TestCancelledSubmitDoesNotCloseNewDraft(t *testing.T) {
	h := newHarness(t)
	m := h.model(t)

	m = press(t, m, runes("a"), runes("first"))
	next, held := m.Update(keyEnter)
	m = next.(Model)

	// Cancel while the create is in flight and start another draft.
	m = press(t, m, keyEsc, runes("a"), runes("second draft"))
	if m.formBusy {
		t.Fatalf("new draft should accept submits")
	}

	m = drive(t, m, held)
	if m.mode != modeForm || !m.form.Open() {
		t.Fatalf("late answer closed the new form (mode=%v)", m.mode)
	}
	if got := m.form.State().Description; got != "second draft" {
		t.Fatalf("draft lost, got %q", got)
	}
	if got := items(m); len(got) != 1 || got[0].Description != "first" {
		t.Fatalf("first create should still land, got %+v", got)
	}

	m = press(t, m, keyEnter)
	if m.mode != modeList || len(items(m)) != 2 {
		t.Fatalf("second submit should close the form and add a todo")
	}
}
