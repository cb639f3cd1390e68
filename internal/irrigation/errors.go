package irrigation

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is matched by every *ValidationError via errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError identifies the first input field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
