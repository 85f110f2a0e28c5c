package hostfuncs

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// ErrorResponse is the structured error returned to extensions as JSON.
// Extensions receive consistent, parseable errors instead of WASM
// traps; a sandbox-local failure never crashes the host.
type ErrorResponse struct {
	// Error is a machine-readable error type identifier.
	Error string `json:"error"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Code is a numeric error code.
	Code int `json:"code"`
}

// Error type identifiers on the wire.
const (
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeResourceExceeded = "RESOURCE_EXCEEDED"
	CodeCancelled        = "CANCELLED"
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeInternal         = "INTERNAL_ERROR"
)

// ToJSON serializes the ErrorResponse to JSON bytes.
func (e ErrorResponse) ToJSON() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return data
}

// NewDeniedError creates the response for an operation not covered by
// any live token. The message carries the capability's reason string so
// the user understands what was blocked and why.
func NewDeniedError(err error) ErrorResponse {
	return ErrorResponse{Error: CodePermissionDenied, Message: err.Error(), Code: 403}
}

// NewResourceExceededError creates the response for a call that blew
// its time or memory budget.
func NewResourceExceededError(message string) ErrorResponse {
	return ErrorResponse{Error: CodeResourceExceeded, Message: message, Code: 429}
}

// NewCancelledError creates the response for a call aborted by sandbox
// unload.
func NewCancelledError(message string) ErrorResponse {
	return ErrorResponse{Error: CodeCancelled, Message: message, Code: 499}
}

// NewValidationError creates the response for bad input.
func NewValidationError(message string) ErrorResponse {
	return ErrorResponse{Error: CodeValidation, Message: message, Code: 400}
}

// NewNotFoundError creates the response for unknown handler names.
func NewNotFoundError(name string) ErrorResponse {
	return ErrorResponse{Error: CodeNotFound, Message: "unknown host function: " + name, Code: 404}
}

// NewInternalError creates the response for unexpected failures.
func NewInternalError(message string) ErrorResponse {
	return ErrorResponse{Error: CodeInternal, Message: message, Code: 500}
}

// NewPanicError creates the response for recovered panics.
func NewPanicError(panicValue any) ErrorResponse {
	var msg string
	switch v := panicValue.(type) {
	case error:
		msg = v.Error()
	case string:
		msg = v
	default:
		msg = "panic recovered"
	}
	return ErrorResponse{Error: CodeInternal, Message: "panic: " + msg, Code: 500}
}

// FromError maps a Go error to the wire error taxonomy. Context
// expiry maps to the resource/cancellation codes so a timed-out or
// unloaded extension sees a typed error, not an internal failure.
func FromError(err error) ErrorResponse {
	switch {
	case errors.Is(err, entities.ErrPermissionDenied):
		return NewDeniedError(err)
	case errors.Is(err, entities.ErrResourceExceeded), errors.Is(err, context.DeadlineExceeded):
		return NewResourceExceededError(err.Error())
	case errors.Is(err, entities.ErrCancelled), errors.Is(err, context.Canceled):
		return NewCancelledError(err.Error())
	default:
		return NewInternalError(err.Error())
	}
}
