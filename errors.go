package agentloop

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyInput is returned when a required input slice is empty.
var ErrEmptyInput = errors.New("empty input")

// ErrorCategory classifies errors by how they should be handled.
type ErrorCategory string

const (
	// ErrorRateLimited indicates the service throttled the request. The
	// operation can be retried, ideally after the delay the server suggested.
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorTransient indicates the error is temporary and the operation can be retried.
	// Examples: server overload, temporary network issues, 5xx responses.
	ErrorTransient ErrorCategory = "transient"

	// ErrorPermanent indicates the error is not recoverable through retry.
	// Examples: invalid API key, insufficient permissions, malformed request.
	ErrorPermanent ErrorCategory = "permanent"

	// ErrorUnknown indicates the error could not be classified. Unknown errors
	// are not retried.
	ErrorUnknown ErrorCategory = "unknown"
)

// CategorizedError is an error that provides information about how it should be handled.
type CategorizedError interface {
	error
	Category() ErrorCategory
	Retryable() bool           // convenience: true for rate_limited and transient
	StatusCode() int           // HTTP status code if applicable, 0 otherwise
	RetryAfter() time.Duration // suggested retry delay from server, 0 if not available
}

// Error is a categorized error with metadata for error handling decisions.
type Error struct {
	Msg        string
	Cat        ErrorCategory
	Code       int           // HTTP status code, 0 if not applicable
	RetryDelay time.Duration // from Retry-After header, 0 if not available
	Cause      error         // underlying error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Category returns the error category.
func (e *Error) Category() ErrorCategory {
	return e.Cat
}

// Retryable returns true if the error is rate-limited or transient.
func (e *Error) Retryable() bool {
	return e.Cat == ErrorRateLimited || e.Cat == ErrorTransient
}

// StatusCode returns the HTTP status code, or 0 if not applicable.
func (e *Error) StatusCode() int {
	return e.Code
}

// RetryAfter returns the suggested retry delay, or 0 if not available.
func (e *Error) RetryAfter() time.Duration {
	return e.RetryDelay
}

// NewRateLimitedError creates a rate-limit error with an optional server
// suggested retry delay.
func NewRateLimitedError(msg string, statusCode int, retryAfter time.Duration, cause error) *Error {
	return &Error{
		Msg:        msg,
		Cat:        ErrorRateLimited,
		Code:       statusCode,
		RetryDelay: retryAfter,
		Cause:      cause,
	}
}

// NewTransientError creates a transient error that can be retried.
func NewTransientError(msg string, statusCode int, cause error) *Error {
	return &Error{
		Msg:   msg,
		Cat:   ErrorTransient,
		Code:  statusCode,
		Cause: cause,
	}
}

// NewPermanentError creates a permanent error that should not be retried.
func NewPermanentError(msg string, statusCode int, cause error) *Error {
	return &Error{
		Msg:   msg,
		Cat:   ErrorPermanent,
		Code:  statusCode,
		Cause: cause,
	}
}

// NewUnknownError creates an error of unknown category.
func NewUnknownError(msg string, statusCode int, cause error) *Error {
	return &Error{
		Msg:   msg,
		Cat:   ErrorUnknown,
		Code:  statusCode,
		Cause: cause,
	}
}

// IsRetryable returns true if the error is categorized as rate-limited or
// transient. It checks if the error or any wrapped error implements
// CategorizedError.
func IsRetryable(err error) bool {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Retryable()
	}
	return false
}

// IsRateLimited returns true if the error is categorized as rate-limited.
func IsRateLimited(err error) bool {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ErrorRateLimited
	}
	return false
}

// IsTransient returns true if the error is categorized as transient.
func IsTransient(err error) bool {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ErrorTransient
	}
	return false
}

// IsPermanent returns true if the error is categorized as permanent.
func IsPermanent(err error) bool {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ErrorPermanent
	}
	return false
}

// StatusCodeOf returns the HTTP status code from a categorized error, or 0.
func StatusCodeOf(err error) int {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.StatusCode()
	}
	return 0
}

// RetryAfterOf returns the retry delay from a categorized error, or 0.
func RetryAfterOf(err error) time.Duration {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.RetryAfter()
	}
	return 0
}

// ModelNotAvailableError indicates a logical model name has no configured
// deployment. It is raised before any network attempt and is never retried.
type ModelNotAvailableError struct {
	Model  string
	Reason string
}

// Error returns a message naming the unavailable model.
func (e *ModelNotAvailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("model %q is not available: %s", e.Model, e.Reason)
	}
	return fmt.Sprintf("model %q is not available", e.Model)
}

// Category returns ErrorPermanent; a missing deployment cannot be fixed by retrying.
func (e *ModelNotAvailableError) Category() ErrorCategory { return ErrorPermanent }

// Retryable returns false.
func (e *ModelNotAvailableError) Retryable() bool { return false }

// StatusCode returns 0; the error is raised before any request is made.
func (e *ModelNotAvailableError) StatusCode() int { return 0 }

// RetryAfter returns 0.
func (e *ModelNotAvailableError) RetryAfter() time.Duration { return 0 }
