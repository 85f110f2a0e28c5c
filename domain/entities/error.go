package entities

import (
	"errors"
	"fmt"
)

// Manifest-time errors. These are reported to the extension author and
// block install; they never occur at runtime.
var (
	ErrMalformedScope       = errors.New("malformed scope")
	ErrDisallowedBroadGrant = errors.New("disallowed broad grant")
	ErrSchema               = errors.New("manifest schema error")
	ErrDuplicateCapability  = errors.New("duplicate capability")
	ErrOverBroadRequest     = errors.New("over-broad request")
)

// Runtime errors. These are reported to the sandboxed extension as typed
// errors and never crash the host.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrResourceExceeded = errors.New("resource budget exceeded")
	ErrCancelled        = errors.New("cancelled")
)

// Attestation-time errors.
var (
	ErrMismatch = errors.New("declared/observed capability mismatch")
	ErrAnalysis = errors.New("analysis failed")
)

// ScopeError describes a capability scope rejected at validation time.
type ScopeError struct {
	Kind     error // ErrMalformedScope or ErrDisallowedBroadGrant
	Category Category
	Scope    string
	Detail   string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("%v: %s scope %q: %s", e.Kind, e.Category, e.Scope, e.Detail)
}

func (e *ScopeError) Unwrap() error { return e.Kind }

// DeniedError is the typed runtime error returned when a host call is
// not covered by any live token. Reason carries the human-readable
// explanation (from the capability's reason field when one was
// requested) so users understand what was blocked and why.
type DeniedError struct {
	Grantee   string
	Operation Operation
	Reason    string
}

func (e *DeniedError) Error() string {
	msg := fmt.Sprintf("%v: %s may not %s", ErrPermissionDenied, e.Grantee, e.Operation)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *DeniedError) Unwrap() error { return ErrPermissionDenied }
