// Package errors provides the structured error types used across speakerkit.
// Every attribution failure mode maps to a named ErrorCode, and the
// orchestrator routes on codes rather than on error chains.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// CodeOf extracts the ErrorCode from err, or ErrCodeInternal if err is not
// an AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// --- Common Error Constructors ---

// ProviderUnavailable creates an AppError for a backend that is not
// installed or has no credential configured.
func ProviderUnavailable(backend, reason string) *AppError {
	return &AppError{
		Code: ErrCodeProviderUnavailable, Message: fmt.Sprintf("The %s backend is unavailable: %s.", backend, reason),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"backend": backend},
	}
}

// ProviderCall creates an AppError for a failed backend call.
func ProviderCall(backend string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeProviderCall, Message: fmt.Sprintf("The %s backend call failed.", backend),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"backend": backend},
		Cause:   cause,
	}
}

// CacheWrite creates an AppError for a failed cache write. Callers log it
// and continue; a cache write failure never aborts an attribution run.
func CacheWrite(path string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeCacheWrite, Message: "Failed to write diarization cache entry.",
		HTTPStatus: http.StatusInternalServerError, Retryable: true,
		Details: map[string]any{"path": path},
		Cause:   cause,
	}
}

// MalformedResponse creates an AppError for unparseable backend output.
func MalformedResponse(backend string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeMalformedResponse, Message: fmt.Sprintf("The %s backend returned unparseable output.", backend),
		HTTPStatus: http.StatusBadGateway, Retryable: false,
		Details: map[string]any{"backend": backend},
		Cause:   cause,
	}
}

// InvalidInput creates an AppError for invalid input.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// Internal creates an AppError for an unexpected internal failure.
func Internal(message string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: message,
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
		Cause: cause,
	}
}
