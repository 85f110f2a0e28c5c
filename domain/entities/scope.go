package entities

import (
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Scope is a parsed scope expression: a verb and a target pattern.
// The raw wire form is "verb:pattern" (e.g. "read:/data/**",
// "connect:*.example.com"). Clipboard and notification scopes may omit
// the pattern ("read", "post"), which means the whole category.
type Scope struct {
	Category Category
	Verb     string
	Pattern  string
}

// scopeVerbs maps each category to its permitted verbs.
var scopeVerbs = map[Category][]string{
	CategoryFilesystem:   {"read", "write"},
	CategoryNetwork:      {"connect"},
	CategoryIpc:          {"send", "receive"},
	CategoryHardware:     {"access"},
	CategoryClipboard:    {"read", "write"},
	CategoryNotification: {"post"},
	CategoryShell:        {"exec"},
}

// patternRequired lists categories whose scopes must name a concrete
// target pattern in a manifest. Clipboard and notification grants are
// all-or-nothing.
func patternRequired(c Category) bool {
	switch c {
	case CategoryClipboard, CategoryNotification:
		return false
	}
	return true
}

// ParseScope parses a raw scope expression for the given category.
// A missing pattern parses successfully (observed capabilities from
// static extraction are verb-level only); manifest validation separately
// rejects empty patterns where one is required.
func ParseScope(category Category, raw string) (Scope, error) {
	if !category.Known() {
		return Scope{}, &ScopeError{Kind: ErrMalformedScope, Category: category, Scope: raw, Detail: "unknown category"}
	}
	if raw == "" {
		return Scope{}, &ScopeError{Kind: ErrMalformedScope, Category: category, Scope: raw, Detail: "empty scope"}
	}
	if raw == "*" {
		// A bare "*" requests the whole category: every verb, every
		// target. It is always broad, so manifest validation rejects it
		// unless the capability carries the broad flag.
		return Scope{Category: category, Verb: "*", Pattern: "*"}, nil
	}

	verb, pattern, _ := strings.Cut(raw, ":")
	if !validVerb(category, verb) {
		return Scope{}, &ScopeError{Kind: ErrMalformedScope, Category: category, Scope: raw, Detail: "unknown verb " + verb}
	}
	if pattern != "" {
		if err := validatePattern(category, pattern); err != nil {
			return Scope{}, &ScopeError{Kind: ErrMalformedScope, Category: category, Scope: raw, Detail: err.Error()}
		}
	}
	return Scope{Category: category, Verb: verb, Pattern: pattern}, nil
}

func validVerb(category Category, verb string) bool {
	for _, v := range scopeVerbs[category] {
		if v == verb {
			return true
		}
	}
	return false
}

func validatePattern(category Category, pattern string) error {
	if !doublestar.ValidatePattern(pattern) {
		return errors.New("invalid glob pattern")
	}
	switch category {
	case CategoryFilesystem:
		if !strings.HasPrefix(pattern, "/") && !isBroadPattern(pattern) {
			return errors.New("path must be absolute")
		}
		for _, seg := range strings.Split(pattern, "/") {
			if seg == ".." {
				return errors.New("path must not contain ..")
			}
		}
	case CategoryNetwork:
		if strings.Contains(pattern, "/") {
			return errors.New("host pattern must not contain a scheme or path")
		}
	}
	return nil
}

// IsBroad reports whether the scope is a bare wildcard covering the
// entire category.
func (s Scope) IsBroad() bool {
	return isBroadPattern(s.Pattern)
}

func isBroadPattern(pattern string) bool {
	switch pattern {
	case "*", "**", "/**", "/*":
		return true
	}
	return false
}

// Canonical returns the normalized "verb:pattern" form. Patternless
// clipboard and notification scopes canonicalize to the bare verb; a
// whole-category grant canonicalizes to "*".
func (s Scope) Canonical() string {
	if s.Verb == "*" {
		return "*"
	}
	if s.Pattern == "" {
		return s.Verb
	}
	if !patternRequired(s.Category) && s.Pattern == "*" {
		return s.Verb
	}
	return s.Verb + ":" + s.Pattern
}

// Covers reports whether the scope authorizes the concrete operation.
// A patternless scope in a patternless category covers every operation
// with the same verb.
func (s Scope) Covers(op Operation) bool {
	if s.Category != op.Category {
		return false
	}
	if s.Verb == "*" {
		return true
	}
	if s.Verb != op.Verb {
		return false
	}
	if s.Pattern == "" {
		return !patternRequired(s.Category)
	}
	matched, err := doublestar.Match(s.Pattern, op.Target)
	return err == nil && matched
}

// CoversScope reports whether this scope is a superset of other.
// Verb-level observations (empty pattern) are covered by any scope with
// the same verb; concrete observed targets are matched against this
// scope's pattern.
func (s Scope) CoversScope(other Scope) bool {
	if s.Category != other.Category {
		return false
	}
	if s.Verb == "*" {
		return true
	}
	if s.Verb != other.Verb {
		return false
	}
	if other.Pattern == "" {
		return true
	}
	if s.Pattern == "" {
		return !patternRequired(s.Category)
	}
	if s.Pattern == other.Pattern || s.IsBroad() {
		return true
	}
	matched, err := doublestar.Match(s.Pattern, other.Pattern)
	return err == nil && matched
}
