package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if cfg.Server != "http://localhost:8080" {
		t.Errorf("unexpected server %q", cfg.Server)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("unexpected timeout %v", cfg.Timeout)
	}
	if cfg.Strategy != "refresh" || cfg.Theme != "classic" {
		t.Errorf("unexpected strategy/theme %q/%q", cfg.Strategy, cfg.Theme)
	}
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server != Default().Server {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "config.yaml")
	content := "server: https://todos.example.com\ntimeout: 3s\nstrategy: optimistic\nlog_level: debug\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server != "https://todos.example.com" {
		t.Errorf("server not loaded: %q", cfg.Server)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("timeout not loaded: %v", cfg.Timeout)
	}
	if cfg.Strategy != "optimistic" {
		t.Errorf("strategy not loaded: %q", cfg.Strategy)
	}
	if cfg.Theme != "classic" {
		t.Errorf("unset keys should keep defaults, theme=%q", cfg.Theme)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("unexpected level %v", cfg.Level())
	}
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "sub", "config.yaml")
	if err := WriteDefault(p, false); err != nil {
		t.Fatalf("write default: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "localhost:8080") || !strings.Contains(string(b), "timeout: 10s") {
		t.Fatalf("unexpected content:\n%s", b)
	}
	if err := WriteDefault(p, false); err == nil {
		t.Fatalf("expected error when the file exists")
	}
	if err := WriteDefault(p, true); err != nil {
		t.Fatalf("force overwrite: %v", err)
	}

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.Timeout != 10*time.Second {
		t.Fatalf("round trip lost the timeout: %v", cfg.Timeout)
	}
}
