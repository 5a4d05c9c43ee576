package orchestrator

import "errors"

// Domain errors surfaced to the HTTP boundary. GenerationFailure is reported
// as *generator.GenerationError and NotificationFailure is logged only.
var (
	// ErrValidation indicates malformed or semantically invalid input.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates an unknown or expired request ID.
	ErrNotFound = errors.New("plan request not found")

	// ErrStateConflict indicates the operation is not valid for the request's
	// current status (terminal request, or out-of-order week number).
	ErrStateConflict = errors.New("operation conflicts with current plan state")
)
