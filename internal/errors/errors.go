// Package errors provides coded domain errors for the enrichment tools.
//
// Usage:
//
//	// In clients - return typed errors
//	if resp.StatusCode == http.StatusNotFound {
//	    return domainerrors.NotFound("article not found")
//	}
//
//	// In runners - classify by code
//	if domainerrors.IsTransient(err) {
//	    note = "will be retried next run"
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the tools.
const (
	CodeNotFound         Code = "NOT_FOUND"
	CodeRetriesExhausted Code = "RETRIES_EXHAUSTED"
	CodeUpstream         Code = "UPSTREAM"
	CodeValidation       Code = "VALIDATION"
	CodeIO               Code = "IO"
)

// Transient reports whether errors with this code may succeed on a later run.
func (c Code) Transient() bool {
	return c == CodeRetriesExhausted || c == CodeUpstream
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "not found"}
	ErrRetriesExhausted = &Error{Code: CodeRetriesExhausted, Message: "retries exhausted"}
	ErrUpstream         = &Error{Code: CodeUpstream, Message: "upstream request failed"}
	ErrValidation       = &Error{Code: CodeValidation, Message: "validation error"}
	ErrIO               = &Error{Code: CodeIO, Message: "i/o error"}
)

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// RetriesExhausted creates an error for a request that ran out of attempts.
func RetriesExhausted(msg string) *Error {
	return &Error{Code: CodeRetriesExhausted, Message: msg}
}

// Upstream creates an error for a failed request to a third-party API.
func Upstream(msg string) *Error {
	return &Error{Code: CodeUpstream, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails creates a validation error with field-level details.
func ValidationWithDetails(msg string, details map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// IO creates an error for dataset file access.
func IO(msg string, cause error) *Error {
	return &Error{Code: CodeIO, Message: msg, cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsTransient reports whether err is worth retrying on a later run.
func IsTransient(err error) bool {
	return CodeOf(err).Transient()
}
