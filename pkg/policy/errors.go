package policy

import "fmt"

// ConfigError indicates the rule set failed to load or was malformed.
// It is fatal at startup; a failed reload leaves the previous rule set
// in effect.
type ConfigError struct {
	Path  string
	Cause error
}

// Error returns the error message.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("policy configuration error for %q: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ValidationError indicates a structurally invalid rule set.
type ValidationError struct {
	Errors []string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("rule set validation error: %s", e.Errors[0])
	}
	return fmt.Sprintf("rule set: %d validation errors: %v", len(e.Errors), e.Errors)
}
