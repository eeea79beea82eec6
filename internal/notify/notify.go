// Package notify turns operation errors into the one-line messages shown to
// the user, and holds the latest one.
package notify

import (
	"errors"

	"github.com/Makepad-fr/tada-remote/internal/model"
	"github.com/Makepad-fr/tada-remote/internal/store"
)

var opMessages = map[model.Op]string{
	model.OpFetch:    "Failed to fetch todos.",
	model.OpCreate:   "Failed to create todo.",
	model.OpUpdate:   "Failed to update todo.",
	model.OpStatus:   "Failed to update todo status.",
	model.OpDelete:   "Failed to delete todo.",
	model.OpUpload:   "Failed to upload file.",
	model.OpDownload: "Failed to download file.",
}

// Message is the user-facing text for err. nil gives "".
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, model.ErrEmptyDescription):
		return "Description cannot be empty."
	case errors.Is(err, model.ErrNoFile):
		return "No file selected."
	}
	var oe *model.OpError
	if errors.As(err, &oe) {
		if msg, ok := opMessages[oe.Op]; ok {
			return msg
		}
	}
	return err.Error()
}

// Banner is the single error slot. A new error replaces the old one.
type Banner struct {
	msg string
	err error
}

// Set records err. nil and superseded refreshes are ignored.
func (b *Banner) Set(err error) {
	if err == nil || errors.Is(err, store.ErrSuperseded) {
		return
	}
	b.err = err
	b.msg = Message(err)
}

// Clear empties the slot.
func (b *Banner) Clear() { *b = Banner{} }

// Message returns the current text, or "".
func (b *Banner) Message() string { return b.msg }

// Err returns the error behind the message.
func (b *Banner) Err() error { return b.err }

// Empty reports whether nothing is shown.
func (b *Banner) Empty() bool { return b.msg == "" }
