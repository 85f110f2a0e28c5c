package entities

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Bundle is a built extension artifact: the validated manifest, the
// compiled WASM module, and the dependency tree used for the SBOM walk.
type Bundle struct {
	Manifest     *Manifest
	ManifestRaw  []byte
	Module       []byte
	Dependencies []Dependency
}

// Dependency is one node of an extension's dependency tree.
type Dependency struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	License      string       `json:"license,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
}

// Bundle file names inside an extension directory.
const (
	BundleManifestFile = "manifest.toml"
	BundleModuleFile   = "extension.wasm"
	BundleDepsFile     = "dependencies.json"
)

// ReadBundleDir loads a bundle from an extension directory. The
// dependency file is optional; its absence yields an empty tree, which
// the attestation engine treats as an analysis failure when SBOM
// generation is required.
func ReadBundleDir(dir string) (*Bundle, error) {
	manifestRaw, err := os.ReadFile(filepath.Join(dir, BundleManifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle manifest: %w", err)
	}
	module, err := os.ReadFile(filepath.Join(dir, BundleModuleFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle module: %w", err)
	}

	b := &Bundle{ManifestRaw: manifestRaw, Module: module}

	depsRaw, err := os.ReadFile(filepath.Join(dir, BundleDepsFile))
	if os.IsNotExist(err) {
		return b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle dependencies: %w", err)
	}
	if err := json.Unmarshal(depsRaw, &b.Dependencies); err != nil {
		return nil, fmt.Errorf("failed to parse bundle dependencies: %w", err)
	}
	return b, nil
}
