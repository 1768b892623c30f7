package classify

import "fmt"

// ClassificationError indicates the classifier collaborator was
// unreachable, timed out, or returned malformed output. It terminates
// the flow with a classification-error status; it is never retried
// automatically.
type ClassificationError struct {
	Cause error
}

// Error returns the error message.
func (e *ClassificationError) Error() string {
	return fmt.Sprintf("intent classification failed: %v", e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ClassificationError) Unwrap() error {
	return e.Cause
}
