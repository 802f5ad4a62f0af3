package hub

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for unknown channel ids.
	ErrNotFound = errors.New("channel not found")
	// ErrChannelNotActive is returned when an operation requires an active channel.
	ErrChannelNotActive = errors.New("channel is not active")
)

// PersistenceError reports a failed durable-store operation. The operation
// that triggered it was aborted.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
