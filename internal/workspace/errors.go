package workspace

import (
	"errors"
	"fmt"
)

var (
	ErrAccessDenied  = errors.New("access denied: path escapes workspace")
	ErrInvalidPath   = errors.New("invalid path")
	ErrNotFound      = errors.New("file not found")
	ErrAlreadyExists = errors.New("file already exists")
)

// PathError records a failed store operation on a workspace-relative path.
// Err is always one of the sentinel errors above or an underlying I/O error.
type PathError struct {
	Op     string
	Path   string
	Detail string
	Err    error
}

func (e *PathError) Error() string {
	message := fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	if e.Detail != "" {
		message += " (" + e.Detail + ")"
	}
	return message
}

func (e *PathError) Unwrap() error { return e.Err }

func newPathError(op, path string, err error) *PathError {
	return &PathError{Op: op, Path: path, Err: err}
}
