package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the canlog domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("canlog: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("canlog: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("canlog: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("canlog: invalid configuration")
)

// ConnectionError reports a failure to open or read the serial link.
// It is fatal to the whole pipeline and never retried.
type ConnectionError struct {
	Port string
	Op   string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("canlog: %s %s: %v", e.Op, e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// PersistenceError reports a failure to append a batch to its log file.
// The batch is lost; acquisition continues.
type PersistenceError struct {
	Path   string
	Frames int
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("canlog: append %d records to %s: %v", e.Frames, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
