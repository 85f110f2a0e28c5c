package policy_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxidekit/oxidekit-core/domain/entities"
	"github.com/oxidekit/oxidekit-core/domain/policy"
)

// recordingHandler captures denials for assertions.
type recordingHandler struct {
	mu      sync.Mutex
	denials []string
}

func (h *recordingHandler) OnDenial(extensionID string, op entities.Operation, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.denials = append(h.denials, reason)
}

func TestEngineNormalize(t *testing.T) {
	e := policy.NewEngine(policy.WithSymlinkResolution(false))

	t.Run("should clean filesystem paths", func(t *testing.T) {
		op, ok := e.Normalize(entities.FilesystemRead("/data//reports/./q3.csv"))
		require.True(t, ok)
		assert.Equal(t, "/data/reports/q3.csv", op.Target)
	})

	t.Run("should collapse parent traversal before matching", func(t *testing.T) {
		op, ok := e.Normalize(entities.FilesystemRead("/data/../etc/passwd"))
		require.True(t, ok)
		assert.Equal(t, "/etc/passwd", op.Target)
	})

	t.Run("should refuse relative paths", func(t *testing.T) {
		_, ok := e.Normalize(entities.FilesystemRead("data/q3.csv"))
		assert.False(t, ok)
	})

	t.Run("should lowercase network hosts", func(t *testing.T) {
		op, ok := e.Normalize(entities.NetworkConnect("API.Example.COM", "https"))
		require.True(t, ok)
		assert.Equal(t, "api.example.com", op.Target)
	})

	t.Run("should pass non-target categories through", func(t *testing.T) {
		op, ok := e.Normalize(entities.ClipboardRead())
		require.True(t, ok)
		assert.Empty(t, op.Target)
	})
}

func TestEngineNormalizeSymlinks(t *testing.T) {
	t.Run("should resolve symlinks to their real target", func(t *testing.T) {
		dir := t.TempDir()
		real := filepath.Join(dir, "secret.txt")
		require.NoError(t, os.WriteFile(real, []byte("x"), 0o600))
		link := filepath.Join(dir, "innocent.txt")
		require.NoError(t, os.Symlink(real, link))

		e := policy.NewEngine()
		op, ok := e.Normalize(entities.FilesystemRead(link))
		require.True(t, ok)
		assert.Equal(t, mustEval(t, real), op.Target)
	})
}

// mustEval resolves dir symlinks the OS may add (e.g. /tmp on macOS).
func mustEval(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	return resolved
}

func TestEngineCovering(t *testing.T) {
	caps := []entities.Capability{
		{Category: entities.CategoryFilesystem, Scope: "read:/data/**"},
		{Category: entities.CategoryNetwork, Scope: "connect:*.example.com", HTTPSOnly: true},
	}

	t.Run("should find covering capability", func(t *testing.T) {
		e := policy.NewEngine(policy.WithSymlinkResolution(false))
		cap, ok := e.Covering("ext", caps, entities.FilesystemRead("/data/a.txt"))
		require.True(t, ok)
		assert.Equal(t, "read:/data/**", cap.Scope)
	})

	t.Run("should deny and report uncovered operation", func(t *testing.T) {
		h := &recordingHandler{}
		e := policy.NewEngine(
			policy.WithSymlinkResolution(false),
			policy.WithDenialHandler(h),
		)
		_, ok := e.Covering("ext", caps, entities.FilesystemRead("/etc/passwd"))
		assert.False(t, ok)
		require.Len(t, h.denials, 1)
		assert.Equal(t, "no covering grant", h.denials[0])
	})

	t.Run("should deny plain http against https-only grant", func(t *testing.T) {
		e := policy.NewEngine(policy.WithSymlinkResolution(false))
		assert.False(t, e.Check("ext", caps, entities.NetworkConnect("api.example.com", "http")))
		assert.True(t, e.Check("ext", caps, entities.NetworkConnect("api.example.com", "https")))
	})

	t.Run("should normalize case before matching hosts", func(t *testing.T) {
		e := policy.NewEngine(policy.WithSymlinkResolution(false))
		assert.True(t, e.Check("ext", caps, entities.NetworkConnect("API.EXAMPLE.COM", "https")))
	})
}
