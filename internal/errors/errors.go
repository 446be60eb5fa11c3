package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a tracker error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrSessionExists    ErrorCode = "SESSION_EXISTS"    // 409
	ErrTrackerDisabled  ErrorCode = "TRACKER_DISABLED"  // 409
	ErrEmptyGeneration  ErrorCode = "EMPTY_GENERATION"  // 422
	ErrCancelled        ErrorCode = "CANCELLED"         // 499
	ErrGenerationFailed ErrorCode = "GENERATION_FAILED" // 502
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// TrackerError represents a structured error with code, status, and details.
type TrackerError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *TrackerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *TrackerError {
	return &TrackerError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing session, message, or snapshot.
func NewNotFound(kind, identifier string) *TrackerError {
	return &TrackerError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewSessionExists creates a 409 error for session name collisions.
func NewSessionExists(name string) *TrackerError {
	return &TrackerError{
		Code:    ErrSessionExists,
		Status:  409,
		Message: fmt.Sprintf("session with name %q already exists", name),
		Details: map[string]any{"name": name},
	}
}

// NewTrackerDisabled creates a 409 error for operations attempted while the
// tracker is switched off in session settings.
func NewTrackerDisabled(session string) *TrackerError {
	return &TrackerError{
		Code:    ErrTrackerDisabled,
		Status:  409,
		Message: fmt.Sprintf("tracker is disabled for session %s", session),
		Details: map[string]any{"session": session},
	}
}

// NewEmptyGeneration creates a 422 error for a regeneration response that
// carried no parseable tags. State is left untouched when this is returned.
func NewEmptyGeneration() *TrackerError {
	return &TrackerError{
		Code:    ErrEmptyGeneration,
		Status:  422,
		Message: "model response contained no usable tags; state unchanged",
	}
}

// NewCancelled creates a 499 error for an operation stopped by its context.
func NewCancelled(operation string) *TrackerError {
	return &TrackerError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewGenerationFailed creates a 502 error for a failed model request.
func NewGenerationFailed(err error) *TrackerError {
	msg := "generation request failed"
	if err != nil {
		msg = fmt.Sprintf("generation request failed: %s", err.Error())
	}
	return &TrackerError{
		Code:    ErrGenerationFailed,
		Status:  502,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors. The
// message stays generic; the original error text goes into Details so it
// reaches logs without reaching the model.
func NewInternal(err error) *TrackerError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &TrackerError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is, or wraps, a TrackerError with the given code.
func Is(err error, code ErrorCode) bool {
	var tErr *TrackerError
	if stderrors.As(err, &tErr) {
		return tErr.Code == code
	}
	return false
}
