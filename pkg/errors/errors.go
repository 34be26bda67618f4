package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios. Callers must never see backend
// internals (stack traces, credentials) in the Message field.
var (
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "evidence not found")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// ErrPayloadRejected covers size and content-type gate failures on upload.
	ErrPayloadRejected = New("PAYLOAD_REJECTED", http.StatusBadRequest, "payload rejected")
	// ErrBackendUnavailable marks transient object-storage failures; retryable.
	ErrBackendUnavailable = New("BACKEND_UNAVAILABLE", http.StatusBadGateway, "storage backend unavailable")
	// ErrIntegrityViolation marks a digest mismatch; fatal, never retried.
	ErrIntegrityViolation = New("INTEGRITY_VIOLATION", http.StatusInternalServerError, "evidence integrity violation")
	// ErrCapabilityExpired is reported when a presigned token is used past expiry.
	// The backend enforces this itself; the code exists for upstream mapping.
	ErrCapabilityExpired = New("CAPABILITY_EXPIRED", http.StatusForbidden, "capability expired")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// HasCode reports whether err carries the given predefined error code.
func HasCode(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}

// Retryable reports whether the error represents a transient backend
// condition worth retrying with backoff.
func Retryable(err error) bool {
	return HasCode(err, ErrBackendUnavailable)
}
