// Package llmerrors provides structured error classification for text-generation
// backend failures, so the HTTP boundary can map them to distinct status codes.
package llmerrors

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrorType represents categories of backend errors.
type ErrorType int8

const (
	// ErrorTypeTimeout represents a call that exceeded its deadline or was canceled.
	ErrorTypeTimeout ErrorType = iota
	// ErrorTypeRateLimit represents rate limiting errors (429, quota exceeded).
	ErrorTypeRateLimit
	// ErrorTypeTransient represents transient errors (5xx, EOF, connection reset).
	ErrorTypeTransient
	// ErrorTypeEmptyResponse represents a success status with no content.
	ErrorTypeEmptyResponse
	// ErrorTypeAuth represents authentication errors (401/403, bad API key).
	ErrorTypeAuth
	// ErrorTypeBadPrompt represents malformed request errors (too long, rejected).
	ErrorTypeBadPrompt
	// ErrorTypeUnknown is the default for unclassified errors.
	ErrorTypeUnknown
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeEmptyResponse:
		return "empty_response"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeBadPrompt:
		return "bad_prompt"
	case ErrorTypeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Error represents a classified backend error.
type Error struct {
	Err        error     // Wrapped underlying error
	Message    string    // Human-readable error message
	Type       ErrorType // Classified error type
	StatusCode int       // HTTP status code if applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("LLM error (%s): %s", e.Type.String(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("LLM error (%s): %v", e.Type.String(), e.Err)
	}
	return fmt.Sprintf("LLM error (%s): status %d", e.Type.String(), e.StatusCode)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a fresh attempt could plausibly succeed.
// Blocklist approach: everything is retryable unless known not to be.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeAuth, ErrorTypeBadPrompt:
		return false
	default:
		return true
	}
}

// NewError creates a classified error with a message.
func NewError(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// NewErrorWithCause creates a classified error wrapping an underlying error.
func NewErrorWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{Type: errorType, Err: cause, Message: message}
}

// NewErrorWithStatus creates a classified error carrying an HTTP status code.
func NewErrorWithStatus(errorType ErrorType, statusCode int, message string) *Error {
	return &Error{Type: errorType, StatusCode: statusCode, Message: message}
}

// Is checks if an error is of a specific type.
func Is(err error, errorType ErrorType) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == errorType
	}
	return false
}

// TypeOf returns the error type of an error, or ErrorTypeUnknown if not classified.
func TypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

var statusCodePattern = regexp.MustCompile(`\b([1-5]\d{2})\b`)

// ExtractStatusCode pulls an HTTP status code out of an SDK error string, or 0.
func ExtractStatusCode(errStr string) int {
	match := statusCodePattern.FindStringSubmatch(errStr)
	if len(match) < 2 {
		return 0
	}
	code, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return code
}

// Classify maps an arbitrary SDK error to a structured error. Provider clients
// call this after handling any provider-specific cases of their own.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewErrorWithCause(ErrorTypeTimeout, err, "request timed out")
	}
	if errors.Is(err, context.Canceled) {
		return NewErrorWithCause(ErrorTypeTimeout, err, "request canceled")
	}

	errStr := err.Error()

	switch ExtractStatusCode(errStr) {
	case 401:
		return NewErrorWithStatus(ErrorTypeAuth, 401, "authentication failed - check API key")
	case 403:
		return NewErrorWithStatus(ErrorTypeAuth, 403, "permission denied - check API access")
	case 429:
		return NewErrorWithStatus(ErrorTypeRateLimit, 429, "rate limit exceeded")
	case 400:
		return NewErrorWithStatus(ErrorTypeBadPrompt, 400, "bad request - check prompt format and parameters")
	case 500, 502, 503, 504:
		return NewErrorWithCause(ErrorTypeTransient, err, "server error")
	}

	lower := strings.ToLower(errStr)

	if strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline") {
		return NewErrorWithCause(ErrorTypeTimeout, err, "request timed out")
	}
	if strings.Contains(lower, "connection") ||
		strings.Contains(lower, "network") ||
		strings.Contains(lower, "temporary") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(lower, "reset") {
		return NewErrorWithCause(ErrorTypeTransient, err, "network or connection error")
	}
	if strings.Contains(lower, "rate") || strings.Contains(lower, "quota") {
		return NewErrorWithCause(ErrorTypeRateLimit, err, "rate limiting detected")
	}
	if strings.Contains(lower, "auth") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "api key") {
		return NewErrorWithCause(ErrorTypeAuth, err, "authentication error")
	}
	if strings.Contains(lower, "invalid") || strings.Contains(lower, "malformed") || strings.Contains(lower, "too large") {
		return NewErrorWithCause(ErrorTypeBadPrompt, err, "prompt or request error")
	}

	return NewErrorWithCause(ErrorTypeUnknown, err, "unclassified backend error")
}
