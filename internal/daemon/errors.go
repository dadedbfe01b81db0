package daemon

import (
	"errors"
	"fmt"
)

var (
	// ErrBinaryNotFound indicates the daemon binary could not be resolved.
	ErrBinaryNotFound = errors.New("daemon binary not found")
	// ErrAlreadyLaunched indicates Launch was called more than once.
	ErrAlreadyLaunched = errors.New("daemon already launched")
	// ErrReadinessTimeout indicates the daemon never answered within the retry budget.
	ErrReadinessTimeout = errors.New("daemon did not become ready")
)

// SpawnError reports an OS-level failure to start the daemon process.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to execute %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// QueryError reports a failed request against the daemon control API.
type QueryError struct {
	Op         string
	StatusCode int    // 0 when the request never got a response
	Message    string // daemon supplied error message, if any
	Err        error
}

func (e *QueryError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: daemon returned %d: %s", e.Op, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s: daemon returned %d", e.Op, e.StatusCode)
	}
}

func (e *QueryError) Unwrap() error { return e.Err }
