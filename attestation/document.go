package attestation

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// DocumentVersion is the schema version of the external report format.
const DocumentVersion = "1.0"

// BadgeValidity is how long a verification badge stays valid before the
// extension must be re-attested.
const BadgeValidity = 90 * 24 * time.Hour

// Document is the consumer-facing attestation report: a stable JSON
// shape marketplaces and badge services read. It is derived from an
// AttestationRecord, never stored.
type Document struct {
	Version      string          `json:"version"`
	App          DocumentApp     `json:"app"`
	Verification DocVerification `json:"verification"`
	Badge        DocumentBadge   `json:"badge"`
	Signature    string          `json:"signature"`
}

// DocumentApp identifies the attested artifact.
type DocumentApp struct {
	ID      string `json:"id"`
	Version string `json:"version"`
	Hash    string `json:"hash"`
}

// DocVerification groups the capability, security and SBOM sections.
type DocVerification struct {
	Capabilities DocCapabilities `json:"capabilities"`
	Security     DocSecurity     `json:"security"`
	SBOM         DocSBOM         `json:"sbom"`
}

// DocCapabilities is the declared/verified capability diff.
type DocCapabilities struct {
	Declared []string `json:"declared"`
	Verified []string `json:"verified"`
	Status   string   `json:"status"`
}

// DocSecurity is the vulnerability summary.
type DocSecurity struct {
	Vulnerabilities entities.VulnerabilityCounts `json:"vulnerabilities"`
	Status          string                       `json:"status"`
}

// DocSBOM summarizes the software bill of materials.
type DocSBOM struct {
	Format     string   `json:"format"`
	Components int      `json:"components"`
	Licenses   []string `json:"licenses"`
}

// DocumentBadge is the marketplace badge grant.
type DocumentBadge struct {
	Eligible bool   `json:"eligible"`
	URL      string `json:"url,omitempty"`
	Expires  string `json:"expires,omitempty"`
}

// NewDocument renders a record into the external report format. Badge
// eligibility requires a Match verdict and a non-empty SBOM; the badge
// expires 90 days after generation.
func NewDocument(record *entities.AttestationRecord, badgeBaseURL string) Document {
	doc := Document{
		Version: DocumentVersion,
		App: DocumentApp{
			ID:      record.Subject.Name,
			Version: record.Subject.Version,
			Hash:    record.Subject.ContentHash,
		},
		Verification: DocVerification{
			Capabilities: DocCapabilities{
				Declared: record.Declared,
				Verified: record.Observed,
				Status:   string(record.Verdict),
			},
			Security: DocSecurity{
				Vulnerabilities: record.Vulnerabilities,
				Status:          record.ScanStatus,
			},
			SBOM: DocSBOM{
				Format:     "oxide-sbom/1",
				Components: len(record.SBOM),
				Licenses:   Licenses(record.SBOM),
			},
		},
		Signature: base64.StdEncoding.EncodeToString(record.Signature),
	}

	if record.Verdict == entities.VerdictMatch && len(record.SBOM) > 0 {
		doc.Badge = DocumentBadge{
			Eligible: true,
			Expires:  record.GeneratedAt.Add(BadgeValidity).UTC().Format(time.RFC3339),
		}
		if badgeBaseURL != "" {
			doc.Badge.URL = fmt.Sprintf("%s/%s", badgeBaseURL, record.Subject.ContentHash)
		}
	}
	return doc
}

// MarshalDocument renders the document as indented JSON.
func MarshalDocument(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}
