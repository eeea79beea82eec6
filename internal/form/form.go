// Package form is the state machine behind the create/edit modal.
package form

import (
	"context"
	"errors"
	"strings"

	"github.com/Makepad-fr/tada-remote/internal/model"
	"github.com/Makepad-fr/tada-remote/internal/store"
)

// ErrAlreadyOpen is returned when opening a form that is not closed.
var ErrAlreadyOpen = errors.New("form already open")

// Mode tags the form state.
type Mode int

const (
	Closed Mode = iota
	Creating
	Editing
)

func (m Mode) String() string {
	switch m {
	case Creating:
		return "creating"
	case Editing:
		return "editing"
	}
	return "closed"
}

// State is the tagged form state. Target is only meaningful while Editing.
type State struct {
	Mode        Mode
	Target      model.Todo
	Description string
}

// Mutator is the subset of *store.Store a submission needs.
type Mutator interface {
	Create(ctx context.Context, description string) error
	Update(ctx context.Context, id, description string) error
}

// Controller drives one modal. The zero value is Closed.
type Controller struct {
	state   State
	session uint64 // bumped on every open
}

// State returns a copy of the current state.
func (c *Controller) State() State { return c.state }

// Open reports whether the modal is showing.
func (c *Controller) Open() bool { return c.state.Mode != Closed }

// OpenCreate moves Closed -> Creating("").
func (c *Controller) OpenCreate() error {
	if c.Open() {
		return ErrAlreadyOpen
	}
	c.state = State{Mode: Creating}
	c.session++
	return nil
}

// OpenEdit moves Closed -> Editing(t, t.Description).
func (c *Controller) OpenEdit(t model.Todo) error {
	if c.Open() {
		return ErrAlreadyOpen
	}
	c.state = State{Mode: Editing, Target: t, Description: t.Description}
	c.session++
	return nil
}

// SetDescription edits the draft in place. No-op while Closed.
func (c *Controller) SetDescription(s string) {
	if c.Open() {
		c.state.Description = s
	}
}

// Cancel drops the draft and closes the modal.
func (c *Controller) Cancel() { c.state = State{} }

// Submission is a validated request captured from the form.
type Submission struct {
	Mode        Mode
	ID          string
	Description string

	session uint64
}

// Do sends the submission to the store.
func (s Submission) Do(ctx context.Context, m Mutator) error {
	if s.Mode == Editing {
		return m.Update(ctx, s.ID, s.Description)
	}
	return m.Create(ctx, s.Description)
}

// Begin validates the draft. An empty (trimmed) description leaves the
// state untouched and returns model.ErrEmptyDescription.
func (c *Controller) Begin() (Submission, error) {
	if !c.Open() {
		return Submission{}, errors.New("form is closed")
	}
	desc := strings.TrimSpace(c.state.Description)
	if desc == "" {
		return Submission{}, model.ErrEmptyDescription
	}
	return Submission{Mode: c.state.Mode, ID: c.state.Target.ID, Description: desc, session: c.session}, nil
}

// Owns reports whether sub was taken from the modal that is showing now.
// A submission outlives its modal when the user cancels while it is in flight.
func (c *Controller) Owns(sub Submission) bool {
	return c.Open() && sub.session == c.session
}

// Finish applies the store's answer to sub: committed closes and clears the
// form, anything else keeps it as is. Answers for a modal that has since been
// cancelled or reopened leave the state alone. err is returned unchanged.
func (c *Controller) Finish(sub Submission, err error) error {
	if c.Owns(sub) && store.Committed(err) {
		c.state = State{}
	}
	return err
}

// Submit is Begin, Do and Finish in one synchronous call.
func (c *Controller) Submit(ctx context.Context, m Mutator) error {
	sub, err := c.Begin()
	if err != nil {
		return err
	}
	return c.Finish(sub, sub.Do(ctx, m))
}
