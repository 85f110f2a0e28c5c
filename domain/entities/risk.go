package entities

// RiskLevel classifies the privacy and security impact of a capability
// category. Prompt UIs order disclosures by risk; the attestation
// document reports the highest declared risk.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	}
	return "unknown"
}

// Risk returns the risk level of the category.
func (c Category) Risk() RiskLevel {
	switch c {
	case CategoryFilesystem, CategoryNetwork, CategoryHardware:
		return RiskHigh
	case CategoryShell:
		return RiskCritical
	case CategoryClipboard, CategoryIpc:
		return RiskMedium
	case CategoryNotification:
		return RiskLow
	}
	return RiskMedium
}

// MaxRisk returns the highest risk level among the capabilities.
func MaxRisk(caps []Capability) RiskLevel {
	max := RiskLow
	for _, c := range caps {
		if r := c.Category.Risk(); r > max {
			max = r
		}
	}
	return max
}
