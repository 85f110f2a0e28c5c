package broker

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// Effect is what a matched rule does to a request.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Rule is one organization-wide policy entry. Empty match fields match
// anything; patterns use glob syntax. Rules are evaluated in order and
// the first match wins.
type Rule struct {
	Name        string            `yaml:"name" json:"name"`
	Effect      Effect            `yaml:"effect" json:"effect"`
	Publisher   string            `yaml:"publisher,omitempty" json:"publisher,omitempty"`
	ExtensionID string            `yaml:"extension_id,omitempty" json:"extension_id,omitempty"`
	Category    entities.Category `yaml:"category,omitempty" json:"category,omitempty"`
	Scope       string            `yaml:"scope,omitempty" json:"scope,omitempty"` // glob over the raw scope
}

type ruleEffect int

const (
	effectNone ruleEffect = iota
	effectAllow
	effectDeny
)

// evaluateRules returns the effect of the first matching rule, or
// effectNone when no rule matches.
func evaluateRules(rules []Rule, extensionID, publisher string, capability entities.Capability) (ruleEffect, Rule) {
	for _, r := range rules {
		if !r.matches(extensionID, publisher, capability) {
			continue
		}
		if r.Effect == EffectDeny {
			return effectDeny, r
		}
		return effectAllow, r
	}
	return effectNone, Rule{}
}

func (r Rule) matches(extensionID, publisher string, capability entities.Capability) bool {
	if r.ExtensionID != "" && !globMatch(r.ExtensionID, extensionID) {
		return false
	}
	if r.Publisher != "" && !globMatch(r.Publisher, publisher) {
		return false
	}
	if r.Category != "" && r.Category != capability.Category {
		return false
	}
	if r.Scope != "" && !globMatch(r.Scope, capability.Scope) {
		return false
	}
	return true
}

func globMatch(pattern, value string) bool {
	matched, err := doublestar.Match(pattern, value)
	return err == nil && matched
}
