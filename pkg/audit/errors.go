package audit

import "fmt"

// SinkError indicates an audit sink operation failed.
type SinkError struct {
	Backend   string
	Operation string
	Cause     error
}

// NewSinkError creates a sink error.
func NewSinkError(backend, operation string, cause error) *SinkError {
	return &SinkError{Backend: backend, Operation: operation, Cause: cause}
}

// Error returns the error message.
func (e *SinkError) Error() string {
	return fmt.Sprintf("audit sink %s: %s failed: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *SinkError) Unwrap() error {
	return e.Cause
}
