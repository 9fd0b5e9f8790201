package timetrack

import "errors"

// Domain errors for the timetrack package.
var (
	// ErrEntryNotFound is returned when an entry ID does not exist.
	ErrEntryNotFound = errors.New("timetrack: entry not found")

	// ErrInvalidEntry is wrapped by every *ValidationError.
	ErrInvalidEntry = errors.New("timetrack: invalid entry")

	// ErrTimerStopped is returned by StopTimer for an entry that already has an end time.
	ErrTimerStopped = errors.New("timetrack: timer already stopped")
)

// ValidationError names the field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Unwrap lets errors.Is match ErrInvalidEntry.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidEntry
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
