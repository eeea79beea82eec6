package sqlite

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Makepad-fr/tada-remote/internal/model"
)

var (
	// ErrNotFound is returned for unknown todo ids.
	ErrNotFound = errors.New("todo not found")
	// ErrInvalid wraps rejected input.
	ErrInvalid = errors.New("invalid todo")
)

// Store wraps access to the SQLite database backing the reference remote store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS todos (
            id TEXT PRIMARY KEY,
            description TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_todos_status ON todos(status);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// NewID builds a 24-char hex id: 8 chars of Unix seconds, then 16 random chars.
func NewID(now time.Time) string {
	u := uuid.New()
	return fmt.Sprintf("%08x", uint32(now.Unix())) + hex.EncodeToString(u[:8])
}

// List returns todos newest first. An empty status lists everything.
func (s *Store) List(ctx context.Context, status model.Status) ([]model.Todo, error) {
	query := `SELECT id, description, status FROM todos`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	todos := []model.Todo{}
	for rows.Next() {
		var t model.Todo
		if err := rows.Scan(&t.ID, &t.Description, &t.Status); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

// Get fetches a single todo by id.
func (s *Store) Get(ctx context.Context, id string) (model.Todo, error) {
	var t model.Todo
	err := s.db.QueryRowContext(ctx, `SELECT id, description, status FROM todos WHERE id = ?`, id).
		Scan(&t.ID, &t.Description, &t.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Todo{}, ErrNotFound
	}
	if err != nil {
		return model.Todo{}, fmt.Errorf("get todo: %w", err)
	}
	return t, nil
}

// Create inserts a todo and assigns its id. An empty status means pending.
func (s *Store) Create(ctx context.Context, description string, status model.Status) (model.Todo, error) {
	t, err := newTodo(description, status)
	if err != nil {
		return model.Todo{}, err
	}
	t.ID = NewID(s.now())
	if _, err := s.db.ExecContext(ctx, `INSERT INTO todos(id, description, status) VALUES(?, ?, ?)`, t.ID, t.Description, string(t.Status)); err != nil {
		return model.Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	s.logger.Debug("todo created", "id", t.ID)
	return s.Get(ctx, t.ID)
}

// Changes lists the fields an update sets. Nil fields keep their value.
type Changes struct {
	Description *string
	Status      *model.Status
}

// Update applies changes to the todo. A body carrying every field is a full replace.
func (s *Store) Update(ctx context.Context, id string, ch Changes) (model.Todo, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return model.Todo{}, err
	}

	description := current.Description
	status := current.Status

	if ch.Description != nil {
		description = strings.TrimSpace(*ch.Description)
		if description == "" {
			return model.Todo{}, fmt.Errorf("%w: description must not be empty", ErrInvalid)
		}
	}
	if ch.Status != nil {
		if !ch.Status.Valid() {
			return model.Todo{}, fmt.Errorf("%w: status %q", ErrInvalid, *ch.Status)
		}
		status = *ch.Status
	}

	_, err = s.db.ExecContext(ctx, `UPDATE todos SET description = ?, status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, description, string(status), id)
	if err != nil {
		return model.Todo{}, fmt.Errorf("update todo: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a todo by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func newTodo(description string, status model.Status) (model.Todo, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return model.Todo{}, fmt.Errorf("%w: description must not be empty", ErrInvalid)
	}
	if status == "" {
		status = model.StatusPending
	}
	if !status.Valid() {
		return model.Todo{}, fmt.Errorf("%w: status %q", ErrInvalid, status)
	}
	return model.Todo{Description: description, Status: status}, nil
}
