// Package parser provides manifest document decoding for the formats
// publisher tooling emits (TOML and JSON).
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/oxidekit/oxidekit-core/domain/entities"
	"github.com/oxidekit/oxidekit-core/domain/ports"
)

// ManifestParser decodes TOML or JSON manifests, sniffing the format
// from the document's first non-space byte.
type ManifestParser struct{}

var _ ports.ManifestParser = (*ManifestParser)(nil)

// NewManifestParser creates a format-sniffing manifest parser.
func NewManifestParser() *ManifestParser {
	return &ManifestParser{}
}

// Parse decodes the raw manifest bytes.
func (p *ManifestParser) Parse(raw []byte) (*entities.Manifest, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty manifest", entities.ErrSchema)
	}

	var manifest entities.Manifest
	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&manifest); err != nil {
			return nil, fmt.Errorf("%w: %v", entities.ErrSchema, err)
		}
		return &manifest, nil
	}

	dec := toml.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrSchema, err)
	}
	return &manifest, nil
}
