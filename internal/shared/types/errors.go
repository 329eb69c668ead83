package types

import (
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrAlreadyOpen      = errors.New("conference already opened")
	ErrInvalidState     = errors.New("invalid state for operation")
	ErrNoActiveSession  = errors.New("no active session")
	ErrEngineInitFailed = errors.New("engine initialization failed")
	ErrStaleSession     = errors.New("stale session")
	ErrAlreadyAttached  = errors.New("view container already attached")
	ErrClosed           = errors.New("session closed")
	ErrInvalidParams    = errors.New("invalid connection parameters")
	ErrUnknownDevice    = errors.New("unknown device")
	ErrOperationFailed  = errors.New("operation failed")
)

// OperationFailedError reports an operation the engine refused or that
// broke while running
type OperationFailedError struct {
	Reason string
}

// NewOperationFailed creates an OperationFailedError
func NewOperationFailed(format string, args ...any) *OperationFailedError {
	return &OperationFailedError{Reason: fmt.Sprintf(format, args...)}
}

func (e *OperationFailedError) Error() string {
	return "operation failed: " + e.Reason
}

// Is lets errors.Is match any OperationFailedError against ErrOperationFailed
func (e *OperationFailedError) Is(target error) bool {
	return target == ErrOperationFailed
}
