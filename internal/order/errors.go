package order

import (
	"errors"
	"fmt"
)

// ValidationCode categorizes validation errors.
type ValidationCode string

const (
	// CodeEmptyCart indicates an order send with no line items.
	CodeEmptyCart ValidationCode = "EMPTY_CART"

	// CodeMissingServiceType indicates an order send without a service
	// type selection.
	CodeMissingServiceType ValidationCode = "MISSING_SERVICE_TYPE"

	// CodeInvalidStatus indicates an advance to a status the receiving
	// terminal may not request.
	CodeInvalidStatus ValidationCode = "INVALID_STATUS"
)

// ValidationError represents a malformed request rejected before any
// store write. It is returned synchronously to the initiating action.
type ValidationError struct {
	Code    ValidationCode
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsValidationError returns true if the error is a ValidationError.
// Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func validationErr(code ValidationCode, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}
