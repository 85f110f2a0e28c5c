package hostfuncs

import (
	"context"
	"errors"

	"github.com/oxidekit/oxidekit-core/domain/ports"

	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// Env binds host functions to the broker's authorizer, the usage log,
// and the host services that perform the actual effects. One Env is
// shared by all sandboxes; per-extension identity travels in the
// context.
type Env struct {
	authorizer ports.Authorizer
	usage      *UsageLog
	services   Services
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithServices overrides the default host service implementations.
func WithServices(s Services) EnvOption {
	return func(e *Env) {
		e.services = s
	}
}

// WithUsageLog attaches a usage log for trace-based attestation.
func WithUsageLog(l *UsageLog) EnvOption {
	return func(e *Env) {
		e.usage = l
	}
}

// NewEnv creates an Env enforcing capability checks through the given
// authorizer.
func NewEnv(authorizer ports.Authorizer, opts ...EnvOption) *Env {
	e := &Env{
		authorizer: authorizer,
		services:   DefaultServices(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Usage returns the attached usage log, or nil.
func (e *Env) Usage() *UsageLog { return e.usage }

// authorize runs the per-call capability check. It resolves the caller
// from the context, asks the authorizer for a covering live token, and
// records the operation on success. This runs on every call; results
// are never cached, so revocation is immediate.
func (e *Env) authorize(ctx context.Context, op entities.Operation) error {
	extensionID, ok := ExtensionIDFromContext(ctx)
	if !ok {
		return errors.New("host call without extension identity")
	}
	if _, err := e.authorizer.Authorize(extensionID, op); err != nil {
		return err
	}
	if e.usage != nil {
		e.usage.Record(extensionID, op)
	}
	return nil
}
