package attestation

import (
	"context"
	"fmt"
	"sort"

	"github.com/oxidekit/oxidekit-core/domain/entities"
	"github.com/oxidekit/oxidekit-core/domain/ports"
)

// DependencyWalker flattens a bundle's dependency tree into the SBOM
// component list. Duplicate name@version pairs collapse to one entry;
// top-level dependencies are marked direct.
type DependencyWalker struct{}

var _ ports.ComponentExtractor = (*DependencyWalker)(nil)

// NewDependencyWalker creates a walker.
func NewDependencyWalker() *DependencyWalker {
	return &DependencyWalker{}
}

// Components walks the tree depth-first. An empty tree is an analysis
// error: a build with no dependency information cannot produce a
// trustworthy SBOM.
func (w *DependencyWalker) Components(_ context.Context, bundle *entities.Bundle) ([]entities.Component, error) {
	if len(bundle.Dependencies) == 0 {
		return nil, fmt.Errorf("%w: bundle carries no dependency tree", entities.ErrAnalysis)
	}

	seen := make(map[string]int) // name@version -> index into out
	var out []entities.Component

	var walk func(deps []entities.Dependency, direct bool)
	walk = func(deps []entities.Dependency, direct bool) {
		for _, d := range deps {
			key := d.Name + "@" + d.Version
			if i, ok := seen[key]; ok {
				// A transitive dep that also appears at the top level
				// stays marked direct.
				if direct {
					out[i].Direct = true
				}
			} else {
				seen[key] = len(out)
				out = append(out, entities.Component{
					Name:    d.Name,
					Version: d.Version,
					License: d.License,
					Direct:  direct,
				})
			}
			walk(d.Dependencies, false)
		}
	}
	walk(bundle.Dependencies, true)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version < out[j].Version
	})
	return out, nil
}

// Licenses returns the sorted distinct license identifiers of the
// components. Components without license metadata are skipped.
func Licenses(components []entities.Component) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range components {
		if c.License == "" {
			continue
		}
		if _, ok := seen[c.License]; ok {
			continue
		}
		seen[c.License] = struct{}{}
		out = append(out, c.License)
	}
	sort.Strings(out)
	return out
}

// NotScannedAnalyzer is the default vulnerability analyzer: it reports
// zero findings with the "not-scanned" status so consumers can tell an
// unscanned build from a clean one.
type NotScannedAnalyzer struct{}

var _ ports.VulnerabilityAnalyzer = (*NotScannedAnalyzer)(nil)

// ScanStatus values reported by analyzers.
const (
	ScanPassed     = "passed"
	ScanFailed     = "failed"
	ScanNotScanned = "not-scanned"
)

// Analyze reports nothing was scanned.
func (NotScannedAnalyzer) Analyze(context.Context, *entities.Bundle) (entities.VulnerabilityCounts, string, error) {
	return entities.VulnerabilityCounts{}, ScanNotScanned, nil
}
