package types

import "fmt"

// ValidationError marks input rejected before any persistence happened.
// The HTTP layer matches it with errors.As and maps it to 400; anything
// else coming out of a write path is a storage failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
