// Package validation implements manifest validation: schema checks,
// capability well-formedness, duplicate and disjointness rules, and the
// category cap bounding the attack surface one extension can claim.
// Validation happens once, before any sandbox exists; rejecting a bad
// manifest here is cheaper than catching violations at runtime.
package validation

import (
	"fmt"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"golang.org/x/mod/semver"

	"github.com/oxidekit/oxidekit-core/domain/entities"
	"github.com/oxidekit/oxidekit-core/domain/ports"
)

// DefaultMaxCategories bounds the distinct capability categories a
// single manifest may request.
const DefaultMaxCategories = 5

// validatorConfig holds configuration for the Validator.
type validatorConfig struct {
	maxCategories int
	parser        ports.ManifestParser
}

// Option configures the Validator.
type Option func(*validatorConfig)

// WithMaxCategories sets the distinct-category cap.
func WithMaxCategories(n int) Option {
	return func(c *validatorConfig) {
		c.maxCategories = n
	}
}

// WithParser sets the manifest document parser. Required before
// ValidateRaw can be used.
func WithParser(p ports.ManifestParser) Option {
	return func(c *validatorConfig) {
		c.parser = p
	}
}

// Validator validates extension manifests. It is a pure function of its
// input and policy configuration; no side effects.
type Validator struct {
	config   validatorConfig
	validate *validator.Validate
}

// NewValidator creates a Validator with the given options.
func NewValidator(opts ...Option) *Validator {
	cfg := validatorConfig{maxCategories: DefaultMaxCategories}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Validator{
		config:   cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateRaw parses and validates a raw manifest document.
func (v *Validator) ValidateRaw(raw []byte) (*entities.Manifest, error) {
	if v.config.parser == nil {
		return nil, fmt.Errorf("%w: no manifest parser configured", entities.ErrSchema)
	}
	manifest, err := v.config.parser.Parse(raw)
	if err != nil {
		return nil, err
	}
	if err := v.Validate(manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

// Validate applies all manifest rules to an already-parsed manifest.
func (v *Validator) Validate(m *entities.Manifest) error {
	if err := v.validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", entities.ErrSchema, err)
	}
	if !semver.IsValid(canonicalVersion(m.Version)) {
		return fmt.Errorf("%w: version %q is not valid semver", entities.ErrSchema, m.Version)
	}

	// Every entry must be well-formed on its own.
	for _, c := range m.AllCapabilities() {
		if err := c.Validate(); err != nil {
			return err
		}
	}

	// No duplicates within or across the required/optional sets; the
	// sets must be disjoint.
	seen := make(map[string]string, len(m.Required)+len(m.Optional))
	for _, c := range m.Required {
		key := c.Canonical()
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s", entities.ErrDuplicateCapability, key)
		}
		seen[key] = "required"
	}
	for _, c := range m.Optional {
		key := c.Canonical()
		if set, ok := seen[key]; ok {
			if set == "required" {
				return fmt.Errorf("%w: %s appears in both required and optional", entities.ErrDuplicateCapability, key)
			}
			return fmt.Errorf("%w: %s", entities.ErrDuplicateCapability, key)
		}
		seen[key] = "optional"
	}

	if n := m.DistinctCategories(); n > v.config.maxCategories {
		return fmt.Errorf("%w: %d distinct categories requested, limit is %d",
			entities.ErrOverBroadRequest, n, v.config.maxCategories)
	}
	return nil
}

// canonicalVersion maps bare "1.2.3" versions to the "v"-prefixed form
// golang.org/x/mod/semver expects.
func canonicalVersion(version string) string {
	if strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}
