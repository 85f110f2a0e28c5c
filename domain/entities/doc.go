// Package entities defines the core domain types of the capability
// system: capability scopes, manifests, tokens, attestation records and
// trust tiers. Types here are pure data with validation and comparison
// logic; enforcement, persistence and I/O live in other packages.
package entities
