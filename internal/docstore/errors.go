package docstore

import (
	"errors"
	"fmt"
)

// TransportCode categorizes transport errors.
type TransportCode string

const (
	// CodeUnavailable indicates the store could not serve the operation.
	CodeUnavailable TransportCode = "UNAVAILABLE"

	// CodeNotFound indicates the referenced document does not exist.
	CodeNotFound TransportCode = "NOT_FOUND"

	// CodeNotAuthenticated indicates an operation was attempted before
	// EnsureIdentity resolved.
	CodeNotAuthenticated TransportCode = "NOT_AUTHENTICATED"
)

// TransportError represents a failed store operation. Writes are not
// retried or queued by the engine; the error surfaces to the caller as-is.
type TransportError struct {
	// Code identifies the error category.
	Code TransportCode

	// Op names the failed operation ("create", "merge patch", ...).
	Op string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Op)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error is a TransportError with
// CodeNotFound. Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Code == CodeNotFound
	}
	return false
}

// IsNotAuthenticated returns true if the error is a TransportError with
// CodeNotAuthenticated.
func IsNotAuthenticated(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Code == CodeNotAuthenticated
	}
	return false
}

func transportErr(code TransportCode, op string, err error) *TransportError {
	return &TransportError{Code: code, Op: op, Err: err}
}
