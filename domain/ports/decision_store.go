package ports

import (
	"time"
)

// DecisionKind is a persisted user decision for one capability and
// extension pair.
type DecisionKind string

const (
	DecisionAllow DecisionKind = "allow"
	DecisionDeny  DecisionKind = "deny"
)

// StoredDecision is a persisted prompt outcome. DecidedAt feeds the
// broker's denial cool-down window.
type StoredDecision struct {
	ExtensionID   string       `yaml:"extension_id" json:"extension_id"`
	CapabilityKey string       `yaml:"capability_key" json:"capability_key"` // canonical capability form
	Kind          DecisionKind `yaml:"kind" json:"kind"`
	DecidedAt     time.Time    `yaml:"decided_at" json:"decided_at"`
}

// DecisionStore persists user decisions so the broker does not re-prompt
// for capabilities the user has already ruled on.
type DecisionStore interface {
	// Lookup returns the stored decision for the exact extension and
	// canonical capability key, or nil if none exists.
	Lookup(extensionID, capabilityKey string) (*StoredDecision, error)

	// Record persists a decision, replacing any previous one for the
	// same pair.
	Record(decision StoredDecision) error
}
