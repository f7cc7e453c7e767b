// Package errors provides structured error types for linkscope.
//
// The graph engine recovers every failure at its component boundary and
// surfaces it to the analyst as a non-fatal notification. Codes make that
// classification machine-readable:
//
//   - NETWORK_ERROR, TIMEOUT: a fetch, save or load did not complete.
//     The store is unchanged and the user may retry.
//   - MALFORMED_DATA: a triple or view edge is unusable. Reported as a
//     warning for the single item; the rest of the operation proceeds.
//   - VALIDATION_ERROR: rejected client-side before any network call.
//   - PERSISTENCE_CONFLICT: a view id does not exist.
//   - INTERNAL_ERROR: unexpected failure.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeValidation, "view name cannot be empty")
//	if errors.Is(err, errors.ErrCodeValidation) {
//	    // show inline form error
//	}
//
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "fetch neighbors of %s", id)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeValidation Code = "VALIDATION_ERROR"

	// Data errors
	ErrCodeMalformedData Code = "MALFORMED_DATA"

	// Persistence errors
	ErrCodePersistenceConflict Code = "PERSISTENCE_CONFLICT"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Retryable reports whether the user can retry the failed action.
// Only network failures and timeouts are retryable.
func Retryable(err error) bool {
	switch GetCode(err) {
	case ErrCodeNetwork, ErrCodeTimeout:
		return true
	default:
		return false
	}
}
