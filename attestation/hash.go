package attestation

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/zeebo/blake3"

	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// ContentHash computes the hex BLAKE3 digest that content-addresses a
// bundle. Each part is length-framed so distinct (manifest, module)
// splits can never collide on concatenation.
func ContentHash(bundle *entities.Bundle) string {
	h := blake3.New()
	writeFramed(h, bundle.ManifestRaw)
	writeFramed(h, bundle.Module)
	return hex.EncodeToString(h.Sum(nil))
}

func writeFramed(h *blake3.Hasher, data []byte) {
	var frame [8]byte
	binary.BigEndian.PutUint64(frame[:], uint64(len(data)))
	h.Write(frame[:])
	h.Write(data)
}
