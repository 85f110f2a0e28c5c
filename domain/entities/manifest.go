package entities

// Manifest is a publisher-authored declaration of an extension's
// capability requirements. It is validated once per version and never
// mutated afterwards; changing it requires publishing a new version.
type Manifest struct {
	ExtensionID string       `json:"extension_id" toml:"extension_id" yaml:"extension_id" validate:"required,min=3,max=128" jsonschema:"required"`
	Version     string       `json:"version" toml:"version" yaml:"version" validate:"required" jsonschema:"required"`
	Publisher   string       `json:"publisher,omitempty" toml:"publisher,omitempty" yaml:"publisher,omitempty"`
	Required    []Capability `json:"required,omitempty" toml:"required,omitempty" yaml:"required,omitempty" validate:"dive"`
	Optional    []Capability `json:"optional,omitempty" toml:"optional,omitempty" yaml:"optional,omitempty" validate:"dive"`
}

// AllCapabilities returns required then optional capabilities.
func (m *Manifest) AllCapabilities() []Capability {
	out := make([]Capability, 0, len(m.Required)+len(m.Optional))
	out = append(out, m.Required...)
	out = append(out, m.Optional...)
	return out
}

// DistinctCategories returns the number of distinct categories requested
// across required and optional capabilities. The validator caps this to
// bound the attack surface a single extension can claim.
func (m *Manifest) DistinctCategories() int {
	seen := make(map[Category]struct{})
	for _, c := range m.AllCapabilities() {
		seen[c.Category] = struct{}{}
	}
	return len(seen)
}
