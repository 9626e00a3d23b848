// Package domainerrors defines the coded error type surfaced by services.
//
// Stores and infrastructure return sentinel errors (pkg/platform/sentinel);
// services translate them into coded errors so transports can map them to
// status codes without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for callers and transports.
type Code string

const (
	// CodeAccessDenied: no policy rule permitted the operation.
	CodeAccessDenied Code = "access_denied"
	// CodeConstraintViolation: an invariant, length, range, or uniqueness
	// check failed.
	CodeConstraintViolation Code = "constraint_violation"
	// CodeNotFound: the referenced record or object is absent, or is not
	// visible to the caller. Visibility masking intentionally reuses this
	// code so callers cannot distinguish "absent" from "not yours".
	CodeNotFound Code = "not_found"
	// CodeConflict: a concurrent write lost a race. Retry is the caller's
	// decision; the core never retries on its own.
	CodeConflict Code = "conflict"
	// CodePayloadRejected: attachment size or content type is not allowed.
	CodePayloadRejected Code = "payload_rejected"
	// CodeBadRequest: malformed or caller-unsettable input.
	CodeBadRequest Code = "bad_request"
	// CodeUnavailable: the record repository or blob store is unreachable.
	CodeUnavailable Code = "unavailable"
	// CodeInternal: unexpected failure; details stay in logs.
	CodeInternal Code = "internal"
)

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// Is is a readable alias for HasCode in assertions.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the outermost code, or CodeInternal when err is uncoded.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost message, or a generic one for uncoded errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code to its HTTP status. Transports own nothing else.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeAccessDenied:
		return http.StatusForbidden
	case CodeConstraintViolation:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodePayloadRejected:
		return http.StatusRequestEntityTooLarge
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
