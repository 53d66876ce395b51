package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors translated to HTTP statuses at the route boundary
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInUse        = errors.New("still referenced")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// ValidationError carries every violated rule message in order
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError from one or more messages
func NewValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Messages: msgs}
}

// ConflictError reports a unique-constraint violation on Field.
// Field is empty when the colliding column could not be derived.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return "conflict"
	}
	return fmt.Sprintf("conflict on %s", e.Field)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
