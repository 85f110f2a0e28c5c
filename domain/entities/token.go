package entities

import (
	"time"

	"github.com/google/uuid"
)

// CapabilityToken is runtime proof of a granted capability. Tokens are
// minted only by the permission broker and held exclusively by the
// broker/runtime pair; sandboxed extension code never sees one, only
// the effect of having been granted it. The broker tracks liveness:
// a token that has been revoked or whose sandbox was unloaded no longer
// authorizes anything.
type CapabilityToken struct {
	ID         uuid.UUID
	Capability Capability
	Grantee    string // extension ID
	IssuedAt   time.Time
	Revocable  bool
}

// Covers reports whether the token's capability authorizes op for the
// given extension. Liveness is checked separately by the broker.
func (t *CapabilityToken) Covers(extensionID string, op Operation) bool {
	return t.Grantee == extensionID && t.Capability.Covers(op)
}
