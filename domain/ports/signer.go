package ports

// Signer signs canonical attestation payload bytes with the service's
// private key and verifies signatures against its public key. The
// system assumes an existing signature scheme; the default
// implementation is Ed25519.
type Signer interface {
	Sign(payload []byte) ([]byte, error)
	Verify(payload, signature []byte) bool
	// PublicKey returns the verification key in a wire-encodable form.
	PublicKey() []byte
}
