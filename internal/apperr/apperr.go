// Package apperr defines the sentinel error categories used across snidpipe.
//
// Error taxonomy
//
//	UserError  – caused by missing or invalid user input (wrong flag, bad value, …).
//	             The CLI prints only the message; usage help is NOT repeated.
//	             Exit code: 1.
//
//	ErrInvalidArgument – a classifier argument that cannot be formatted into a
//	                     SNID token (NaN tolerance, zmin > zmax, …). Never coerced.
//
//	ErrClassifierUnavailable – the SNID executable cannot be found or started.
//	                           Checked once at startup for commands that run SNID.
//
//	ErrCancelled – the user deliberately aborted an interactive flow (overwrite
//	               confirmation, …).
//	               Exit code: 0 (not a failure).
//
// Report parse failures live next to the parser (report.ErrFormat). Everything
// else is a plain Go error propagated with fmt.Errorf("context: %w", err) wrapping.
package apperr

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when the user explicitly aborts an interactive
// operation.  The CLI should exit 0 rather than 1 when it sees this error.
var ErrCancelled = errors.New("operation cancelled")

// ErrInvalidArgument marks malformed numeric or label input to the argument formatter.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrClassifierUnavailable marks a missing or unstartable SNID executable.
var ErrClassifierUnavailable = errors.New("classifier unavailable")

// UserError represents an error caused by invalid or missing user input.
// Cobra command handlers return this instead of a bare fmt.Errorf so that
// the root command can suppress repeated usage output and format the message
// in a user-friendly way.
type UserError struct {
	Message string
}

func (e *UserError) Error() string { return e.Message }

// User creates a UserError with the given message.
func User(msg string) error { return &UserError{Message: msg} }

// Userf creates a formatted UserError.
func Userf(format string, args ...any) error {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}

// IsUser reports whether err is (or wraps) a *UserError.
func IsUser(err error) bool {
	var u *UserError
	return errors.As(err, &u)
}

// InvalidArgf wraps ErrInvalidArgument with a formatted description.
func InvalidArgf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
