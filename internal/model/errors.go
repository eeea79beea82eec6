package model

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDescription rejects create/edit submissions locally.
	ErrEmptyDescription = errors.New("description is empty")
	// ErrNoFile rejects an upload submitted without a selected file.
	ErrNoFile = errors.New("no file selected")
	// ErrMalformedID is returned when an id carries no decodable timestamp.
	ErrMalformedID = errors.New("malformed id")
)

// Op names a remote-backed operation for error reporting.
type Op string

const (
	OpFetch    Op = "fetch"
	OpCreate   Op = "create"
	OpUpdate   Op = "update"
	OpStatus   Op = "status"
	OpDelete   Op = "delete"
	OpUpload   Op = "upload"
	OpDownload Op = "download"
)

// OpError is a failed call to the remote store.
type OpError struct {
	Op  Op
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// IsOp reports whether err is an OpError for op.
func IsOp(err error, op Op) bool {
	var oe *OpError
	return errors.As(err, &oe) && oe.Op == op
}
