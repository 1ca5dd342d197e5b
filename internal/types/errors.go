package types

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the class of errors caused by missing or malformed caller input.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError indicates a single invalid request field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// Unwrap places every ValidationError in the ErrInvalidInput class.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
