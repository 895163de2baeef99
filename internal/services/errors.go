package services

import (
	"errors"
	"fmt"

	"corplandlords/wireboard/internal/db"
	"corplandlords/wireboard/internal/models"
)

var (
	// ErrNotFound is returned when a wire addressed by id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrImmutableField rejects writes to requestType or _id once set.
	ErrImmutableField = errors.New("field is immutable")
	// ErrInvalidTransition rejects wizard steps not allowed from the current state.
	ErrInvalidTransition = errors.New("invalid wizard transition")
	// ErrUnauthenticated is returned by reaction operations without a user id.
	ErrUnauthenticated = errors.New("signed-in user required")
)

// ValidationError is the field-level error surfaced next to the offending input.
type ValidationError = models.ValidationError

// PersistenceError reports a store failure. Retryable is set for connectivity problems.
type PersistenceError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e *PersistenceError) Error() string {
	if e.Retryable {
		return fmt.Sprintf("%s: store unavailable (retryable): %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err, Retryable: db.IsTransientError(err)}
}

// IsRetryable reports whether err is a persistence failure worth retrying.
func IsRetryable(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && pe.Retryable
}

func invalidTransition(from, to models.WizardState) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
