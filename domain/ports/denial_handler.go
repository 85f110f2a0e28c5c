package ports

import (
	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// DenialHandler is called when a capability check denies an operation.
// Implementations can log, collect metrics, or surface the denial to
// the user.
type DenialHandler interface {
	OnDenial(extensionID string, op entities.Operation, reason string)
}

// DenialHandlerFunc adapts a function to the DenialHandler interface.
type DenialHandlerFunc func(extensionID string, op entities.Operation, reason string)

func (f DenialHandlerFunc) OnDenial(extensionID string, op entities.Operation, reason string) {
	f(extensionID, op, reason)
}
