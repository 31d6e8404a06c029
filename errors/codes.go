package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Availability errors (route to the text-only fallback, retryable)
const (
	// ErrCodeProviderUnavailable indicates a backend is not installed or
	// has no credential configured.
	ErrCodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	// ErrCodeProviderCall indicates a backend call failed (network, auth,
	// rate limit, model load, device).
	ErrCodeProviderCall ErrorCode = "PROVIDER_CALL_FAILED"
	// ErrCodeTimeout indicates a backend call timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates the client is rate limited.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// Degraded-result errors (repaired locally, never surfaced to callers)
const (
	// ErrCodeCacheWrite indicates the diarization cache could not be written.
	ErrCodeCacheWrite ErrorCode = "CACHE_WRITE_FAILED"
	// ErrCodeMalformedResponse indicates a backend returned unparseable output.
	ErrCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeProviderUnavailable: true,
	ErrCodeProviderCall:        true,
	ErrCodeTimeout:             true,
	ErrCodeRateLimited:         true,
	ErrCodeCacheWrite:          true,
}

// IsRetryableCode reports whether the given code is retryable.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
