package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a todo.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the two known statuses.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Toggle flips pending <-> completed. Unknown values become completed,
// matching how the remote store treats anything that is not pending.
func (s Status) Toggle() Status {
	if s == StatusPending {
		return StatusCompleted
	}
	return StatusPending
}

// ParseStatus accepts "pending" or "completed" (any case).
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("invalid status %q (want pending or completed)", raw)
	}
	return s, nil
}

// Todo is the remote-owned entity. The ID is assigned by the remote store
// and echoed back; the client never makes one up.
type Todo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Status      Status `json:"status"`
}

// Done is shorthand for Status == completed.
func (t Todo) Done() bool { return t.Status == StatusCompleted }

// CreatedAt decodes the creation instant embedded in the id.
// Malformed ids yield the zero time.
func (t Todo) CreatedAt() time.Time {
	ts, err := CreatedAt(t.ID)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// Stats counts completed and pending todos.
func Stats(todos []Todo) (done, pending int) {
	for _, t := range todos {
		if t.Done() {
			done++
		} else {
			pending++
		}
	}
	return
}
