package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// DriverError is a wrapper around system errno codes, with a customizable error message.
type DriverError interface {
	error
	Errno() Errno
	Unwrap() error
	// WithMessage derives a new error with `message` appended. The result still
	// matches the receiver with [errors.Is].
	WithMessage(message string) DriverError
	// Wrap derives a new error that matches both the receiver and `err`.
	Wrap(err error) DriverError
}

type driverError struct {
	errno         Errno
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a string
// describing the error.
func (e driverError) Error() string {
	if e.message != "" {
		return e.message
	}
	return StrError(e.errno)
}

func (e driverError) Errno() Errno {
	return e.errno
}

func (e driverError) Unwrap() error {
	return e.originalError
}

func (e driverError) WithMessage(message string) DriverError {
	return driverError{
		errno:         e.errno,
		message:       fmt.Sprintf("%s: %s", e.Error(), message),
		originalError: e,
	}
}

func (e driverError) Wrap(err error) DriverError {
	return driverError{
		errno:         e.errno,
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// New creates a new [DriverError] with a default message derived from the
// system's error code.
func New(errnoCode Errno) DriverError {
	return driverError{
		errno:   errnoCode,
		message: StrError(errnoCode),
	}
}

func NewFromError(errnoCode Errno, originalError error) DriverError {
	return driverError{
		errno:         errnoCode,
		message:       fmt.Sprintf("%s: %s", StrError(errnoCode), originalError.Error()),
		originalError: originalError,
	}
}

// NewWithMessage creates a new DriverError from a system error code with a
// custom message.
func NewWithMessage(errnoCode Errno, message string) DriverError {
	return driverError{
		errno:   errnoCode,
		message: fmt.Sprintf("%s: %s", StrError(errnoCode), message),
	}
}

// ErrnoOf returns the errno code carried by the first [DriverError] in `err`'s
// chain. Errors that didn't come from this package are reported as EIO, and a
// nil error as EOK.
func ErrnoOf(err error) Errno {
	if err == nil {
		return EOK
	}

	var driverErr DriverError
	if stderrors.As(err, &driverErr) {
		return driverErr.Errno()
	}
	return EIO
}
