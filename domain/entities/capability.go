package entities

import (
	"fmt"
	"sort"
)

// Category identifies the kind of system resource a capability grants
// access to. The set of categories is closed: adding a new one is a
// deliberate schema change, not a silent extension point.
type Category string

const (
	CategoryFilesystem   Category = "filesystem"
	CategoryNetwork      Category = "network"
	CategoryIpc          Category = "ipc"
	CategoryHardware     Category = "hardware"
	CategoryClipboard    Category = "clipboard"
	CategoryNotification Category = "notification"
	CategoryShell        Category = "shell"
)

// Categories returns all known categories in stable order.
func Categories() []Category {
	return []Category{
		CategoryFilesystem,
		CategoryNetwork,
		CategoryIpc,
		CategoryHardware,
		CategoryClipboard,
		CategoryNotification,
		CategoryShell,
	}
}

// Known returns true if c is one of the closed set of categories.
func (c Category) Known() bool {
	switch c {
	case CategoryFilesystem, CategoryNetwork, CategoryIpc, CategoryHardware,
		CategoryClipboard, CategoryNotification, CategoryShell:
		return true
	}
	return false
}

// Capability is a typed permission request: a category, a
// category-specific scope expression, and a human-readable reason shown
// to the user when the capability is prompted for or denied.
// Capabilities are immutable once declared in a manifest.
type Capability struct {
	Category Category `json:"category" toml:"category" yaml:"category" validate:"required" jsonschema:"required,enum=filesystem,enum=network,enum=ipc,enum=hardware,enum=clipboard,enum=notification,enum=shell"`
	Scope    string   `json:"scope" toml:"scope" yaml:"scope" validate:"required" jsonschema:"required"`
	Reason   string   `json:"reason,omitempty" toml:"reason,omitempty" yaml:"reason,omitempty"`

	// Broad must be set to request a bare-wildcard scope. Without it,
	// wildcard scopes are rejected at manifest validation time.
	Broad bool `json:"broad,omitempty" toml:"broad,omitempty" yaml:"broad,omitempty"`

	// HTTPSOnly restricts a network scope to TLS connections.
	// Ignored for non-network categories.
	HTTPSOnly bool `json:"https_only,omitempty" toml:"https_only,omitempty" yaml:"https_only,omitempty"`
}

// Validate checks category-specific scope well-formedness. It is pure:
// no side effects, total over all categories.
func (c Capability) Validate() error {
	scope, err := ParseScope(c.Category, c.Scope)
	if err != nil {
		return err
	}
	if scope.IsBroad() && !c.Broad {
		return &ScopeError{
			Kind:     ErrDisallowedBroadGrant,
			Category: c.Category,
			Scope:    c.Scope,
			Detail:   "wildcard scope requires broad: true",
		}
	}
	return nil
}

// Canonical returns the normalized scope string used for equality and
// subset comparisons. Two capabilities with the same canonical form are
// the same grant.
func (c Capability) Canonical() string {
	scope, err := ParseScope(c.Category, c.Scope)
	if err != nil {
		// Malformed capabilities never reach comparison paths; fall back
		// to a raw form so the result is still deterministic.
		return string(c.Category) + ":" + c.Scope
	}
	s := string(c.Category) + ":" + scope.Canonical()
	if c.Category == CategoryNetwork && c.HTTPSOnly {
		s += "+https"
	}
	return s
}

// Covers reports whether this capability authorizes the concrete
// operation op.
func (c Capability) Covers(op Operation) bool {
	if c.Category != op.Category {
		return false
	}
	scope, err := ParseScope(c.Category, c.Scope)
	if err != nil {
		return false
	}
	if !scope.Covers(op) {
		return false
	}
	if c.Category == CategoryNetwork && c.HTTPSOnly && op.Scheme != "https" {
		return false
	}
	return true
}

// Describe returns a one-line human-readable disclosure for prompts,
// combining the scope with the publisher-supplied reason.
func (c Capability) Describe() string {
	desc := fmt.Sprintf("%s access to %q", c.Category, c.Scope)
	if c.Category == CategoryNetwork && c.HTTPSOnly {
		desc += " (HTTPS only)"
	}
	if c.Reason != "" {
		desc += ": " + c.Reason
	}
	return desc
}

func (c Capability) String() string {
	return c.Canonical()
}

// CanonicalSet returns the sorted, de-duplicated canonical forms of caps.
// Attestation diffs and signatures operate on this representation so the
// result is independent of declaration order.
func CanonicalSet(caps []Capability) []string {
	seen := make(map[string]struct{}, len(caps))
	out := make([]string, 0, len(caps))
	for _, c := range caps {
		key := c.Canonical()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// CoveredBy reports whether every capability in observed is covered by
// some capability in declared. An observed capability with an unknown
// (empty-pattern) scope matches any declared capability sharing its
// category and verb; this is the granularity static extraction provides.
func CoveredBy(observed, declared []Capability) bool {
	return len(Uncovered(observed, declared)) == 0
}

// Uncovered returns the observed capabilities no declared capability
// covers, in input order.
func Uncovered(observed, declared []Capability) []Capability {
	var out []Capability
	for _, o := range observed {
		if !coveredByOne(o, declared) {
			out = append(out, o)
		}
	}
	return out
}

func coveredByOne(o Capability, declared []Capability) bool {
	oScope, err := ParseScope(o.Category, o.Scope)
	if err != nil {
		return false
	}
	for _, d := range declared {
		if d.Category != o.Category {
			continue
		}
		dScope, err := ParseScope(d.Category, d.Scope)
		if err != nil {
			continue
		}
		if !dScope.CoversScope(oScope) {
			continue
		}
		// An https-only grant does not cover a plain connection observed
		// at runtime. Verb-level (empty pattern) observations carry no
		// scheme, so they pass.
		if o.Category == CategoryNetwork && d.HTTPSOnly && !o.HTTPSOnly && oScope.Pattern != "" {
			continue
		}
		return true
	}
	return false
}
