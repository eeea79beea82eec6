package sqlite

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Makepad-fr/tada-remote/internal/model"
)

var csvHeader = []string{"id", "description", "status"}

// Export writes every todo as CSV, newest first.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	todos, err := s.List(ctx, "")
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	for _, t := range todos {
		if err := cw.Write([]string{t.ID, t.Description, string(t.Status)}); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Import reads CSV rows (columns by header name; description required,
// status optional, id ignored) and inserts them in one transaction.
// Any bad row aborts the whole import.
func (s *Store) Import(ctx context.Context, r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: csv header: %v", ErrInvalid, err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	descCol, ok := cols["description"]
	if !ok {
		return 0, fmt.Errorf("%w: csv has no description column", ErrInvalid)
	}
	statusCol, hasStatus := cols["status"]

	var todos []model.Todo
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("%w: csv: %v", ErrInvalid, err)
		}
		var status model.Status
		if hasStatus && statusCol < len(rec) {
			status = model.Status(strings.ToLower(strings.TrimSpace(rec[statusCol])))
		}
		desc := ""
		if descCol < len(rec) {
			desc = rec[descCol]
		}
		t, err := newTodo(desc, status)
		if err != nil {
			return 0, fmt.Errorf("csv line %d: %w", line, err)
		}
		todos = append(todos, t)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO todos(id, description, status) VALUES(?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	now := s.now()
	for _, t := range todos {
		if _, err := stmt.ExecContext(ctx, NewID(now), t.Description, string(t.Status)); err != nil {
			return 0, fmt.Errorf("insert todo: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	s.logger.Info("csv imported", "count", len(todos))
	return len(todos), nil
}
