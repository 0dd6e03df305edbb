// Package apperr defines the error kinds returned by the streak engine and
// maps storage driver failures onto them.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks caller input that can never succeed as given.
	ErrValidation = errors.New("validation error")
	// ErrStorageUnavailable marks a storage round-trip that did not complete.
	// Callers may retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrConstraintViolation marks a write that would break a uniqueness or
	// ownership rule.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrNotFound marks a lookup of something the caller does not own or
	// that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is wrapped inside unique-key violations.
	ErrDuplicate = errors.New("duplicate")
)

// Error carries the failing operation alongside its kind.
type Error struct {
	Op   string
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

// Is reports the kind, so errors.Is(err, ErrValidation) works on wrapped values.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation returns an ErrValidation for op.
func Validation(op, format string, args ...interface{}) error {
	return &Error{Op: op, Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// Constraint returns an ErrConstraintViolation for op.
func Constraint(op, format string, args ...interface{}) error {
	return &Error{Op: op, Kind: ErrConstraintViolation, Msg: fmt.Sprintf(format, args...)}
}

// NotFound returns an ErrNotFound for op.
func NotFound(op, format string, args ...interface{}) error {
	return &Error{Op: op, Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Unavailable wraps err as ErrStorageUnavailable.
func Unavailable(op string, err error) error {
	return &Error{Op: op, Kind: ErrStorageUnavailable, Err: err}
}

// KindOf returns the sentinel kind of err, or nil for unclassified errors.
func KindOf(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return ErrValidation
	case errors.Is(err, ErrConstraintViolation):
		return ErrConstraintViolation
	case errors.Is(err, ErrStorageUnavailable):
		return ErrStorageUnavailable
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	default:
		return nil
	}
}
