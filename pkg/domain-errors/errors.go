// Package domainerrors provides typed domain errors with stable,
// machine-readable codes.
//
// Services return these so transport layers can map them to HTTP statuses
// and callers can branch on the code without string matching. Stores return
// sentinel errors (pkg/platform/sentinel); services translate those into
// domain errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable error category.
type Code string

const (
	// Generic categories shared by every module.
	CodeValidation         Code = "validation_error"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeInternal           Code = "internal_error"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"

	// Visit lifecycle taxonomy.
	CodeInvalidState        Code = "invalid_state"
	CodeGeofenceRejected    Code = "geofence_rejected"
	CodeInvalidCoordinates  Code = "invalid_coordinates"
	CodeLocationUnavailable Code = "location_unavailable"
	// CodePersistence is the only category callers may retry automatically.
	CodePersistence Code = "persistence_failure"
)

// Error is a domain error carrying a code, a human-readable message, and
// optional structured details for caller display (e.g. the computed
// geofence distance).
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates an underlying error with a domain code and message.
// The cause remains reachable through errors.Unwrap / errors.Is.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// WithDetail attaches a structured detail to the error and returns it,
// allowing construction in a single expression.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// HasCode reports whether err (or anything it wraps) is a domain error
// with the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for test readability.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from a domain error, or CodeInternal when err
// is not a domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Detail reads a structured detail from a domain error. The second return
// is false when err is not a domain error or the key is absent.
func Detail(err error, key string) (any, bool) {
	var de *Error
	if !errors.As(err, &de) || de.Details == nil {
		return nil, false
	}
	v, ok := de.Details[key]
	return v, ok
}
