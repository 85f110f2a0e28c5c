// Package signing provides the Ed25519 signer used for attestation
// records.
package signing

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/oxidekit/oxidekit-core/domain/ports"
)

// Ed25519Signer signs attestation payloads with an Ed25519 key pair.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

var _ ports.Signer = (*Ed25519Signer)(nil)

// GenerateSigner creates a signer with a fresh random key pair.
func GenerateSigner() (*Ed25519Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	return &Ed25519Signer{priv: priv, pub: pub}, nil
}

// NewSigner wraps an existing private key.
func NewSigner(priv ed25519.PrivateKey) (*Ed25519Signer, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, errors.New("invalid ed25519 private key length")
	}
	return &Ed25519Signer{
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
	}, nil
}

// LoadSigner reads a hex-encoded private key from a file with 0600
// permissions.
func LoadSigner(path string) (*Ed25519Signer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat key file: %w", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		return nil, fmt.Errorf("key file %s is readable by others; want 0600", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	decoded := make([]byte, hex.DecodedLen(len(raw)))
	n, err := hex.Decode(decoded, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key file: %w", err)
	}
	return NewSigner(ed25519.PrivateKey(decoded[:n]))
}

// SaveKey writes the private key hex-encoded with 0600 permissions.
func (s *Ed25519Signer) SaveKey(path string) error {
	return os.WriteFile(path, []byte(hex.EncodeToString(s.priv)), 0o600)
}

// Sign signs payload.
func (s *Ed25519Signer) Sign(payload []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, payload), nil
}

// Verify checks signature over payload against the signer's public key.
func (s *Ed25519Signer) Verify(payload, signature []byte) bool {
	return ed25519.Verify(s.pub, payload, signature)
}

// PublicKey returns the raw 32-byte public key.
func (s *Ed25519Signer) PublicKey() []byte {
	out := make([]byte, len(s.pub))
	copy(out, s.pub)
	return out
}

// VerifyWithKey checks a signature against a raw public key without
// constructing a signer.
func VerifyWithKey(pub, payload, signature []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), payload, signature)
}
