// Package jsonstore persists the small bits of session state the TUI
// restores on start: the last filter and the last directory browsed for uploads.
package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Makepad-fr/tada-remote/internal/model"
)

// Single file, human-readable. No locking; one TUI per user at a time.

const stateFileName = "state.json"

// State is what survives between TUI sessions.
type State struct {
	Filter    model.Filter `json:"filter"`
	UploadDir string       `json:"upload_dir,omitempty"`
}

// DefaultPath is ~/.tada/state.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".tada", stateFileName), nil
}

// Load reads the state file. A missing or unreadable filter falls back to "all".
func Load(path string) (State, error) {
	st := State{Filter: model.FilterAll}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return st, nil
		}
		return st, fmt.Errorf("read file: %w", err)
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return State{Filter: model.FilterAll}, fmt.Errorf("json unmarshal: %w", err)
	}
	if f, err := model.ParseFilter(string(st.Filter)); err == nil {
		st.Filter = f
	} else {
		st.Filter = model.FilterAll
	}
	return st, nil
}

// Save writes the state file, creating its directory.
func Save(path string, st State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}
