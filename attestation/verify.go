package attestation

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/oxidekit/oxidekit-core/domain/entities"
	"github.com/oxidekit/oxidekit-core/infrastructure/signing"
)

// ErrBadSignature is returned when a record's signature does not verify
// against the expected key, meaning the record was tampered with or
// signed by someone else.
var ErrBadSignature = errors.New("attestation signature verification failed")

// VerifyRecord checks a record's signature against the given raw
// Ed25519 public key. The signature covers subject, declared, observed
// and SBOM; editing any of them after signing fails verification.
func VerifyRecord(record *entities.AttestationRecord, publicKey []byte) error {
	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return fmt.Errorf("failed to build canonical encoder: %w", err)
	}
	payload, err := enc.Marshal(record.Payload())
	if err != nil {
		return fmt.Errorf("failed to encode signed payload: %w", err)
	}
	if !signing.VerifyWithKey(publicKey, payload, record.Signature) {
		return ErrBadSignature
	}
	return nil
}

// VerifyBundle checks that a record actually describes the given
// bundle: the content hash must match the bundle bytes and the
// signature must verify. This is what an installer runs before trusting
// a shipped attestation.
func VerifyBundle(record *entities.AttestationRecord, bundle *entities.Bundle, publicKey []byte) error {
	if got := ContentHash(bundle); got != record.Subject.ContentHash {
		return fmt.Errorf("%w: content hash mismatch: record %s, bundle %s",
			entities.ErrMismatch, record.Subject.ContentHash, got)
	}
	return VerifyRecord(record, publicKey)
}
