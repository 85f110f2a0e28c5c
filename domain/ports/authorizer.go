package ports

import (
	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// Authorizer answers, at call time, whether a concrete operation is
// covered by a live capability token. The permission broker implements
// this; the sandbox runtime consults it on every gated host call.
// Implementations must re-check token liveness on each call rather than
// caching results, so that revocation takes effect before Revoke
// returns.
type Authorizer interface {
	// Authorize returns the covering live token, or a typed error:
	// *entities.DeniedError (wrapping entities.ErrPermissionDenied) when
	// no live token covers the operation.
	Authorize(extensionID string, op entities.Operation) (*entities.CapabilityToken, error)
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(extensionID string, op entities.Operation) (*entities.CapabilityToken, error)

func (f AuthorizerFunc) Authorize(extensionID string, op entities.Operation) (*entities.CapabilityToken, error) {
	return f(extensionID, op)
}
