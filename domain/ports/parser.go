package ports

import (
	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// ManifestParser decodes a raw manifest document (TOML or JSON) into a
// Manifest. Parsing is separate from validation: the validator applies
// schema and capability rules afterwards.
type ManifestParser interface {
	Parse(raw []byte) (*entities.Manifest, error)
}
