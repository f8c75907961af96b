// Package errors holds the error kinds shared by the API features. Handlers
// map a kind to an HTTP status with response.Fail.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("resource not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("resource already exists")
)

// Error is a client-facing message tagged with its kind
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, a ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...)}
}

func NotFound(format string, a ...interface{}) error {
	return newError(ErrNotFound, format, a...)
}

func Forbidden(format string, a ...interface{}) error {
	return newError(ErrForbidden, format, a...)
}

func Invalid(format string, a ...interface{}) error {
	return newError(ErrValidation, format, a...)
}

func Conflict(format string, a ...interface{}) error {
	return newError(ErrConflict, format, a...)
}

// Is reports whether err is of the given kind
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}
