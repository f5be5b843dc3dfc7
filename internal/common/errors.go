// Package common defines sentinel errors and the typed validation/state
// errors shared by the repository and service layers. Callers should use
// errors.Is / errors.As to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Input and lifecycle errors. ValidationError and StateError match these.
	ErrValidation = errors.New("validation error")
	ErrState      = errors.New("invalid state")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// ValidationError reports malformed or missing input. Message is meant to be
// shown to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StateError reports an operation that is not allowed in the entity's
// current state, e.g. approving an already reviewed verification.
type StateError struct {
	Entity string
	ID     string
	State  string
	Op     string
}

func NewStateError(entity, id, state, op string) *StateError {
	return &StateError{Entity: entity, ID: id, State: state, Op: op}
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in state %q", e.Op, e.Entity, e.ID, e.State)
}

func (e *StateError) Is(target error) bool { return target == ErrState }
