package core

import (
	"errors"
	"fmt"
)

// Sentinel error classes. Callers match them with errors.Is; the web adapter
// maps them to HTTP status codes.
var (
	// ErrValidation marks user input that violates a precondition. The request
	// was not sent to the store and any draft is left as it was.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a requested entity id that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable marks a failure of a backing store or remote source.
	ErrUnavailable = errors.New("unavailable")
)

// ValidationError reports a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StockExceededError is returned when a sale line asks for more units than
// the catalog item has in stock. It is a ValidationError variant.
type StockExceededError struct {
	ProductID int
	ItemName  string
	Available int
	Requested int
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.ItemName, e.Available, e.Requested)
}

func (e *StockExceededError) Unwrap() error { return ErrValidation }

// notFound wraps ErrNotFound with the entity kind and id.
func notFound(kind string, id int) error {
	return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}

// unavailable wraps a driver error so that it matches ErrUnavailable while
// keeping the original error in the chain.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
