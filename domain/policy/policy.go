// Package policy implements stateless capability enforcement: deciding
// whether a concrete operation is covered by a set of granted
// capabilities. The broker layers token liveness on top; this package
// only answers the scope-superset question.
package policy

import (
	"path/filepath"
	"strings"

	"github.com/oxidekit/oxidekit-core/domain/entities"
	"github.com/oxidekit/oxidekit-core/domain/ports"
)

// engineConfig holds configuration for the Engine.
type engineConfig struct {
	resolveSymlinks bool               // resolve symlinks before matching paths
	denialHandler   ports.DenialHandler
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		resolveSymlinks: true, // secure default
		denialHandler:   &SlogDenialHandler{},
	}
}

// Option configures the Engine.
type Option func(*engineConfig)

// WithSymlinkResolution enables/disables symlink resolution for
// filesystem targets. Default is true. Disable only for testing.
func WithSymlinkResolution(enabled bool) Option {
	return func(c *engineConfig) {
		c.resolveSymlinks = enabled
	}
}

// WithDenialHandler sets the denial handler.
func WithDenialHandler(h ports.DenialHandler) Option {
	return func(c *engineConfig) {
		c.denialHandler = h
	}
}

// Engine checks operations against capability sets. It is stateless and
// safe for concurrent use.
type Engine struct {
	config engineConfig
}

// NewEngine creates a new Engine.
func NewEngine(opts ...Option) *Engine {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine{config: cfg}
}

// Normalize canonicalizes an operation's target before matching.
// Filesystem paths are cleaned, must be absolute, and have symlinks
// resolved to prevent traversal through links; network hosts are
// lowercased. A non-normalizable operation is never authorized.
func (e *Engine) Normalize(op entities.Operation) (entities.Operation, bool) {
	switch op.Category {
	case entities.CategoryFilesystem:
		path := filepath.Clean(op.Target)
		if !filepath.IsAbs(path) {
			return op, false
		}
		if e.config.resolveSymlinks {
			if resolved, err := filepath.EvalSymlinks(path); err == nil {
				path = resolved
			}
		}
		op.Target = path
	case entities.CategoryNetwork:
		op.Target = strings.ToLower(op.Target)
	}
	return op, true
}

// Covering returns the first capability in caps that authorizes op,
// after normalization. The second return is false when none covers it;
// the denial handler is invoked in that case.
func (e *Engine) Covering(extensionID string, caps []entities.Capability, op entities.Operation) (entities.Capability, bool) {
	normalized, ok := e.Normalize(op)
	if !ok {
		e.config.denialHandler.OnDenial(extensionID, op, "target could not be normalized")
		return entities.Capability{}, false
	}
	for _, c := range caps {
		if c.Covers(normalized) {
			return c, true
		}
	}
	e.config.denialHandler.OnDenial(extensionID, op, "no covering grant")
	return entities.Capability{}, false
}

// Check reports whether any capability in caps authorizes op.
func (e *Engine) Check(extensionID string, caps []entities.Capability, op entities.Operation) bool {
	_, ok := e.Covering(extensionID, caps, op)
	return ok
}
