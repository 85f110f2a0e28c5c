package ports

import (
	"github.com/google/uuid"

	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// PromptEvent is the UI-agnostic permission prompt emitted by the
// broker when a capability request is deferred to the user.
type PromptEvent struct {
	PromptID    uuid.UUID
	ExtensionID string
	Capability  entities.Capability
	Risk        entities.RiskLevel
	Description string
}

// PromptResponse is the user's answer to a prompt.
type PromptResponse string

const (
	ResponseAllowOnce   PromptResponse = "allow_once"
	ResponseAlwaysAllow PromptResponse = "always_allow"
	ResponseDeny        PromptResponse = "deny"
)

// PromptSink receives prompt events from the broker. UI layers (CLI,
// desktop shell) implement this; the broker never blocks on it.
type PromptSink interface {
	// Prompt delivers the event. The response arrives later through the
	// broker's Resolve call, keyed by PromptID.
	Prompt(event PromptEvent)
}

// PromptSinkFunc adapts a function to the PromptSink interface.
type PromptSinkFunc func(event PromptEvent)

func (f PromptSinkFunc) Prompt(event PromptEvent) { f(event) }
