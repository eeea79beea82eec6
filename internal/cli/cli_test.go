package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Makepad-fr/tada-remote/internal/server"
	"github.com/Makepad-fr/tada-remote/internal/storage/sqlite"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type env struct {
	dir    string
	config string
	url    string

	mu      sync.Mutex
	queries []string
}

// Queries returns every request URI the server has seen.
func (e *env) Queries() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.queries...)
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := sqlite.Open(filepath.Join(dir, "todos.db"), quiet)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	e := &env{dir: dir}
	engine := server.New(db, quiet, nil).Engine()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.mu.Lock()
		e.queries = append(e.queries, r.URL.RequestURI())
		e.mu.Unlock()
		engine.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	cfg := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf("server: %s\ntimeout: 5s\ndownload_dir: %s\ntheme: mono\nlog_file: %s\nlog_level: debug\n",
		ts.URL, filepath.Join(dir, "exports"), filepath.Join(dir, "tada.log"))
	if err := os.WriteFile(cfg, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	e.config, e.url = cfg, ts.URL
	return e
}

func (e *env) run(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = Execute(context.Background(), append([]string{"--config", e.config}, args...), &out, &errOut)
	return out.String(), errOut.String(), code
}

func (e *env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, code := e.run(t, args...)
	if code != 0 {
		t.Fatalf("todo %v failed (%d): %s", args, code, errOut)
	}
	return out
}

func TestAddListToggleRemove(t *testing.T) {
	e := newEnv(t)

	if out := e.mustRun(t, "add", "buy", "milk"); !strings.Contains(out, "added") {
		t.Fatalf("unexpected add output %q", out)
	}
	out := e.mustRun(t, "ls")
	if !strings.Contains(out, " 1. [ ] buy milk") {
		t.Fatalf("unexpected listing:\n%s", out)
	}

	e.mustRun(t, "done", "1")
	out = e.mustRun(t, "ls", "--status", "completed")
	if !strings.Contains(out, " 1. [x] buy milk") {
		t.Fatalf("expected completed todo:\n%s", out)
	}
	out = e.mustRun(t, "ls", "--status", "pending")
	if strings.Contains(out, "buy milk") || !strings.Contains(out, "no todos") {
		t.Fatalf("pending listing should be empty:\n%s", out)
	}

	e.mustRun(t, "edit", "1", "buy", "oat", "milk")
	out = e.mustRun(t, "ls", "--group")
	if !strings.Contains(out, "buy oat milk") || !strings.Contains(out, "Completed") {
		t.Fatalf("unexpected grouped listing:\n%s", out)
	}

	e.mustRun(t, "rm", "1")
	if out := e.mustRun(t, "ls"); !strings.Contains(out, "no todos") {
		t.Fatalf("expected empty list:\n%s", out)
	}

	if b, err := os.ReadFile(filepath.Join(e.dir, "tada.log")); err != nil || len(b) == 0 {
		t.Fatalf("expected client log output, err=%v", err)
	}
}

func TestErrorsExitOne(t *testing.T) {
	e := newEnv(t)

	_, errOut, code := e.run(t, "add", "   ")
	if code != 1 || !strings.Contains(errOut, "Description cannot be empty.") {
		t.Fatalf("empty add: code=%d stderr=%q", code, errOut)
	}

	_, errOut, code = e.run(t, "done", "7")
	if code != 1 || !strings.Contains(errOut, "index out of range: have 0, got 7") {
		t.Fatalf("bad index: code=%d stderr=%q", code, errOut)
	}

	_, errOut, code = e.run(t, "ls", "--status", "archived")
	if code != 1 || !strings.Contains(errOut, "invalid filter") {
		t.Fatalf("bad status: code=%d stderr=%q", code, errOut)
	}

	_, errOut, code = e.run(t, "--server", "http://127.0.0.1:1", "ls")
	if code != 1 || !strings.Contains(errOut, "Failed to fetch todos.") {
		t.Fatalf("unreachable server: code=%d stderr=%q", code, errOut)
	}

	_, errOut, code = e.run(t, "import", filepath.Join(e.dir, "missing.csv"))
	if code != 1 || !strings.Contains(errOut, "Failed to upload file.") {
		t.Fatalf("missing file: code=%d stderr=%q", code, errOut)
	}
}

func TestImportExport(t *testing.T) {
	e := newEnv(t)
	src := filepath.Join(e.dir, "in.csv")
	if err := os.WriteFile(src, []byte("description,status\nwalk dog,completed\nwater plants,pending\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if out := e.mustRun(t, "import", src); !strings.Contains(out, "2 todos total") {
		t.Fatalf("unexpected import output %q", out)
	}

	out := e.mustRun(t, "export")
	want := filepath.Join(e.dir, "exports", "todos.csv")
	if !strings.Contains(out, want) {
		t.Fatalf("unexpected export output %q", out)
	}
	b, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "walk dog,completed") || !strings.Contains(string(b), "water plants,pending") {
		t.Fatalf("unexpected csv:\n%s", b)
	}

	other := filepath.Join(e.dir, "elsewhere")
	e.mustRun(t, "export", "--dir", other)
	if _, err := os.Stat(filepath.Join(other, "todos.csv")); err != nil {
		t.Fatalf("export --dir: %v", err)
	}
}

func TestResolveByID(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "add", "first")
	out := e.mustRun(t, "ls")
	if !strings.Contains(out, "first") {
		t.Fatalf("listing:\n%s", out)
	}

	_, errOut, code := e.run(t, "rm", "nope")
	if code != 1 || !strings.Contains(errOut, `no todo with id "nope"`) {
		t.Fatalf("unknown id: code=%d stderr=%q", code, errOut)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun(t, "config", "show")
	if !strings.Contains(out, "server: "+e.url) || !strings.Contains(out, "theme: mono") {
		t.Fatalf("unexpected config show:\n%s", out)
	}

	out = e.mustRun(t, "--server", "http://override:9", "config", "show")
	if !strings.Contains(out, "server: http://override:9") {
		t.Fatalf("flag should override file:\n%s", out)
	}

	_, errOut, code := e.run(t, "config", "init")
	if code != 1 || !strings.Contains(errOut, "config already exists") {
		t.Fatalf("init over existing: code=%d stderr=%q", code, errOut)
	}
	e.mustRun(t, "config", "init", "--force")
	b, err := os.ReadFile(e.config)
	if err != nil || !strings.Contains(string(b), "localhost:8080") {
		t.Fatalf("config not reset: %v\n%s", err, b)
	}
}

// indexOf returns the "N." label printed in front of desc.
func indexOf(t *testing.T, out, desc string) string {
	t.Helper()
	for _, ln := range strings.Split(out, "\n") {
		i := strings.Index(ln, desc)
		if i < 0 {
			continue
		}
		for _, f := range strings.Fields(ln[:i]) {
			if n := strings.TrimSuffix(f, "."); n != f && n != "" && strings.Trim(n, "0123456789") == "" {
				return f
			}
		}
	}
	t.Fatalf("%q not listed:\n%s", desc, out)
	return ""
}

func TestListStatusIssuesFilteredQuery(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "add", "walk dog")
	e.mustRun(t, "done", "1")
	e.mustRun(t, "add", "water plants")

	all := e.mustRun(t, "ls")
	completed := e.mustRun(t, "ls", "--status", "completed")

	if strings.Contains(completed, "water plants") {
		t.Fatalf("pending todo shown under completed:\n%s", completed)
	}
	if got, want := indexOf(t, completed, "walk dog"), indexOf(t, all, "walk dog"); got != want {
		t.Fatalf("filtered listing numbered %s, unfiltered %s", got, want)
	}

	found := false
	for _, q := range e.Queries() {
		if q == "/todos/filter?status=completed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a filtered query, saw %v", e.Queries())
	}
}
