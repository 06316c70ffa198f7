package section

import (
	"errors"
	"fmt"
)

// ErrValidation is the kind shared by all section shape rejections.
var ErrValidation = errors.New("invalid section")

// ValidationError describes why a value could not be resolved to a section id.
type ValidationError struct {
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%T)", ErrValidation, e.Reason, e.Value)
}

// Unwrap lets callers match with errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(v any, reason string) *ValidationError {
	return &ValidationError{Value: v, Reason: reason}
}
