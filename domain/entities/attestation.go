package entities

import "time"

// Verdict is the outcome of an attestation run.
type Verdict string

const (
	// VerdictMatch means every observed capability is covered by the
	// declared manifest.
	VerdictMatch Verdict = "match"
	// VerdictMismatch means the artifact uses a capability it never
	// declared. Mismatch blocks marketplace listing until resolved.
	VerdictMismatch Verdict = "mismatch"
	// VerdictError means extraction or SBOM generation failed. Any
	// uncertainty maps here, never to an optimistic match.
	VerdictError Verdict = "error"
)

// Subject identifies the artifact an attestation record is about.
// ContentHash is the hex BLAKE3 digest of the bundle bytes; records are
// content-addressed by it.
type Subject struct {
	Name        string `json:"name" cbor:"1,keyasint"`
	Version     string `json:"version" cbor:"2,keyasint"`
	ContentHash string `json:"content_hash" cbor:"3,keyasint"`
}

// Component is one SBOM entry.
type Component struct {
	Name    string `json:"name" cbor:"1,keyasint"`
	Version string `json:"version" cbor:"2,keyasint"`
	License string `json:"license,omitempty" cbor:"3,keyasint,omitempty"`
	Direct  bool   `json:"direct,omitempty" cbor:"4,keyasint,omitempty"`
}

// CheckSeverity grades a failed attestation check.
type CheckSeverity string

const (
	SeverityInfo     CheckSeverity = "info"
	SeverityWarning  CheckSeverity = "warning"
	SeverityError    CheckSeverity = "error"
	SeverityCritical CheckSeverity = "critical"
)

// Check is one named verification step inside an attestation run.
type Check struct {
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	Detail   string        `json:"detail,omitempty"`
	Severity CheckSeverity `json:"severity"`
}

// VulnerabilityCounts summarizes security findings by severity. The
// engine does not implement scanning heuristics itself; an analyzer
// port fills these in.
type VulnerabilityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// Total returns the sum of all findings.
func (v VulnerabilityCounts) Total() int {
	return v.Critical + v.High + v.Medium + v.Low
}

// AttestationRecord is the immutable, signed result of attesting one
// build. The signature covers subject, declared, observed and sbom (the
// signedPayload CBOR encoding), so post-hoc tampering with any of them
// invalidates it. Re-attesting an unchanged artifact returns the cached
// record for the same content hash.
type AttestationRecord struct {
	Subject         Subject             `json:"subject"`
	Declared        []string            `json:"declared_capabilities"`
	Observed        []string            `json:"observed_capabilities"`
	SBOM            []Component         `json:"sbom"`
	Checks          []Check             `json:"checks,omitempty"`
	Vulnerabilities VulnerabilityCounts `json:"vulnerabilities"`
	ScanStatus      string              `json:"scan_status"`
	Verdict         Verdict             `json:"verdict"`
	AnalyzerVersion string              `json:"analyzer_version"`
	GeneratedAt     time.Time           `json:"generated_at"`
	Signature       []byte              `json:"signature"`
}

// SignedPayload is the canonical portion of a record covered by its
// signature. Field order and integer keys are fixed so the CBOR
// encoding is deterministic across runs.
type SignedPayload struct {
	Subject  Subject     `cbor:"1,keyasint"`
	Declared []string    `cbor:"2,keyasint"`
	Observed []string    `cbor:"3,keyasint"`
	SBOM     []Component `cbor:"4,keyasint"`
}

// Payload extracts the signed portion of the record.
func (r *AttestationRecord) Payload() SignedPayload {
	return SignedPayload{
		Subject:  r.Subject,
		Declared: r.Declared,
		Observed: r.Observed,
		SBOM:     r.SBOM,
	}
}

// FailedChecks returns the checks that did not pass.
func (r *AttestationRecord) FailedChecks() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}
