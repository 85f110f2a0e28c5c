package entities

import "time"

// Tier is a publisher-level trust classification. Ordering matters:
// higher tiers grant more marketplace visibility.
type Tier int

const (
	TierUnverified Tier = iota
	TierVerified
	TierTrustedPublisher
)

func (t Tier) String() string {
	switch t {
	case TierUnverified:
		return "unverified"
	case TierVerified:
		return "verified"
	case TierTrustedPublisher:
		return "trusted-publisher"
	}
	return "unverified"
}

// TrustTier is the derived, recomputable trust state for a publisher.
// It is mutated only by the trust evaluator, never by publishers; the
// evaluator ignores any publisher-supplied tier input so self-escalation
// is impossible.
type TrustTier struct {
	PublisherID   string    `json:"publisher_id"`
	Tier          Tier      `json:"tier"`
	Since         time.Time `json:"since"`
	IncidentCount int       `json:"incident_count"`
}

// AttestationEvent is one entry of the append-only attestation log the
// trust evaluator folds over. The current TrustTier is a pure function
// of a publisher's event history.
type AttestationEvent struct {
	PublisherID string    `json:"publisher_id"`
	ExtensionID string    `json:"extension_id"`
	ContentHash string    `json:"content_hash"`
	Verdict     Verdict   `json:"verdict"`
	SBOMValid   bool      `json:"sbom_valid"`
	OccurredAt  time.Time `json:"occurred_at"`
}
