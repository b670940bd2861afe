package errors

import (
	"errors"
	"fmt"
)

var (
	// General validation errors
	ErrInvalidInput = errors.New("invalid input")
	ErrOutOfRange   = errors.New("value out of range")

	// Specific field validation errors
	ErrInvalidDaysAhead = fmt.Errorf("%w: daysAhead must be between 1 and 365", ErrOutOfRange)
)

// ValidationError wraps a field validation error
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed for field '%s': %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
