package ports

import (
	"context"

	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// UsageExtractor enumerates the host capabilities an artifact actually
// references or invokes. Strategies differ in granularity: static
// import scanning yields verb-level capabilities, runtime tracing
// yields concrete targets. Any extraction failure must surface as an
// error so the attestation verdict is Error, never an optimistic Match.
type UsageExtractor interface {
	Extract(ctx context.Context, bundle *entities.Bundle) ([]entities.Capability, error)
}

// ComponentExtractor produces the SBOM component list by walking an
// artifact's dependency tree.
type ComponentExtractor interface {
	Components(ctx context.Context, bundle *entities.Bundle) ([]entities.Component, error)
}

// VulnerabilityAnalyzer reports known-vulnerability counts for an
// artifact. The capability system specifies only this protocol; actual
// scanning heuristics plug in from outside. Status values: "passed",
// "failed", "not-scanned".
type VulnerabilityAnalyzer interface {
	Analyze(ctx context.Context, bundle *entities.Bundle) (entities.VulnerabilityCounts, string, error)
}
