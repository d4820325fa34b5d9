package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrUnknownKind indicates a kind that is not configured.
	ErrUnknownKind = errors.New("unknown kind")

	// ErrWatchUnsupported indicates a store driver that cannot be watched.
	ErrWatchUnsupported = errors.New("store does not support watching")

	// ErrWatchDisabled indicates a watchable store with store.watch off.
	ErrWatchDisabled = errors.New("store watching is disabled")

	// ErrClosed indicates use of a closed application.
	ErrClosed = errors.New("application closed")
)

// OperationError represents an error that occurred during a specific operation.
type OperationError struct {
	Op     string // Operation name (e.g., "open", "fetch", "load validator")
	Target string // Target of the operation (e.g., kind name, file path)
	Err    error  // Underlying error
}

// NewOperationError creates a new OperationError.
func NewOperationError(op, target string, err error) *OperationError {
	return &OperationError{
		Op:     op,
		Target: target,
		Err:    err,
	}
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}

	msg := e.Op
	if e.Target != "" {
		msg = fmt.Sprintf("%s %s", e.Op, e.Target)
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
