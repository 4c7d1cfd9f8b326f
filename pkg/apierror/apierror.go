package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Stable error codes surfaced to API clients. These values are part of the
// public contract and must not change between releases.
const (
	CodeValidation     = "validation_error"
	CodeAuthentication = "authentication_required"
	CodeAuthorization  = "forbidden"
	CodeNotFound       = "not_found"
	CodeConflict       = "conflict"
	CodeRateLimited    = "rate_limited"
	CodeDatabase       = "database_error"
	CodeInternal       = "internal_error"
)

// Error is the single error type crossing subsystem boundaries. It carries a
// stable code, an HTTP status, optional structured details, and the wrapped
// cause for errors.Is/errors.As chains.
type Error struct {
	Code       string
	Message    string
	Status     int
	Details    map[string]any
	RetryAfter time.Duration // set only for rate_limited
	cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetail returns a copy of the error with one detail field added.
// The receiver is not modified so shared sentinel-like errors stay safe.
func (e *Error) WithDetail(key string, value any) *Error {
	clone := *e
	clone.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	clone.Details[key] = value
	return &clone
}

// Validation reports a payload that failed validation. Details carries the
// per-field messages.
func Validation(message string, details map[string]any) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: message,
		Status:  http.StatusUnprocessableEntity,
		Details: details,
	}
}

// Authentication reports a request with no resolvable caller identity.
func Authentication(message string) *Error {
	if message == "" {
		message = "authentication required"
	}
	return &Error{
		Code:    CodeAuthentication,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// Authorization reports a caller that is known but not permitted.
func Authorization(message string) *Error {
	if message == "" {
		message = "permission denied"
	}
	return &Error{
		Code:    CodeAuthorization,
		Message: message,
		Status:  http.StatusForbidden,
	}
}

// NotFound reports a resource that is absent within the caller's tenant
// scope. A resource outside the scope is indistinguishable from one that
// does not exist, which is exactly the isolation guarantee.
func NotFound(resource string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
	}
}

// Conflict reports a state conflict such as a duplicate key or stale write.
func Conflict(message string) *Error {
	return &Error{
		Code:    CodeConflict,
		Message: message,
		Status:  http.StatusConflict,
	}
}

// RateLimited reports an admission-control denial. retryAfter tells the
// client when the failing dimension will have capacity again.
func RateLimited(retryAfter time.Duration) *Error {
	return &Error{
		Code:       CodeRateLimited,
		Message:    "rate limit exceeded",
		Status:     http.StatusTooManyRequests,
		RetryAfter: retryAfter,
	}
}

// Database wraps a storage-engine failure. The driver error stays reachable
// through Unwrap but its type never leaks into the message shown to clients.
func Database(cause error) *Error {
	return &Error{
		Code:    CodeDatabase,
		Message: "storage operation failed",
		Status:  http.StatusInternalServerError,
		cause:   cause,
	}
}

// Internal reports an unexpected failure that fits no other kind.
func Internal(cause error) *Error {
	return &Error{
		Code:    CodeInternal,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		cause:   cause,
	}
}

// From extracts the taxonomy error from an error chain. Unknown errors are
// normalized to internal_error so rendering code never branches on nil.
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal(err)
}

func is(err error, code string) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// IsValidation reports whether err is a validation_error.
func IsValidation(err error) bool { return is(err, CodeValidation) }

// IsAuthentication reports whether err is an authentication_required error.
func IsAuthentication(err error) bool { return is(err, CodeAuthentication) }

// IsAuthorization reports whether err is a forbidden error.
func IsAuthorization(err error) bool { return is(err, CodeAuthorization) }

// IsNotFound reports whether err is a not_found error.
func IsNotFound(err error) bool { return is(err, CodeNotFound) }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return is(err, CodeConflict) }

// IsRateLimited reports whether err is a rate_limited error.
func IsRateLimited(err error) bool { return is(err, CodeRateLimited) }

// IsDatabase reports whether err is a database_error.
func IsDatabase(err error) bool { return is(err, CodeDatabase) }
