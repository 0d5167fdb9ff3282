package session

import (
	"errors"
	"fmt"
)

// Session errors.
var (
	// ErrLoadInFlight indicates an edit or save attempted while a requested
	// load has not been committed yet.
	ErrLoadInFlight = errors.New("a load is in progress")

	// ErrNoPath indicates a save or watch on a session without a file.
	ErrNoPath = errors.New("session has no file path")
)

// OperationError records the session operation and file a failure belongs
// to.
type OperationError struct {
	Op   string // Operation name ("open", "save", "save as", "watch")
	Path string // File the operation targeted, if any
	Err  error  // Underlying error
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Op
	if e.Path != "" {
		msg = fmt.Sprintf("%s %s", e.Op, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func opError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Op: op, Path: path, Err: err}
}
