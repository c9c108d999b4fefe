package board

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrInvariant  = errors.New("invariant violated")
)

// ValidationError rejects blank or malformed user input before the store
// is touched. Message is suitable for showing to the user as-is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports an operation that referenced an id the store does
// not hold.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("no %s selected", e.Kind)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvariantError rejects an operation that would break a structural rule of
// the hierarchy, such as deleting the last board.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return e.Message
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }

// IsNotFound reports whether err (or any error in its chain) is a
// NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func notFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}
