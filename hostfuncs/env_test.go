package hostfuncs_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxidekit/oxidekit-core/domain/entities"
	"github.com/oxidekit/oxidekit-core/domain/ports"
	"github.com/oxidekit/oxidekit-core/hostfuncs"
)

const extID = "com.example.notes"

// allowScopes authorizes operations covered by the given capabilities
// and denies everything else.
func allowScopes(caps ...entities.Capability) ports.Authorizer {
	return ports.AuthorizerFunc(func(extensionID string, op entities.Operation) (*entities.CapabilityToken, error) {
		for _, c := range caps {
			if c.Covers(op) {
				return &entities.CapabilityToken{Capability: c, Grantee: extensionID}, nil
			}
		}
		return nil, &entities.DeniedError{Grantee: extensionID, Operation: op}
	})
}

func callerCtx() context.Context {
	return hostfuncs.WithExtensionID(context.Background(), extID)
}

func TestFsHandlers(t *testing.T) {
	dir := t.TempDir()
	scope := entities.Capability{
		Category: entities.CategoryFilesystem,
		Scope:    "read:" + dir + "/**",
	}
	writeScope := entities.Capability{
		Category: entities.CategoryFilesystem,
		Scope:    "write:" + dir + "/**",
	}

	t.Run("should read a file inside the granted subtree", func(t *testing.T) {
		path := filepath.Join(dir, "note.txt")
		require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

		env := hostfuncs.NewEnv(allowScopes(scope))
		resp, err := env.FsRead(callerCtx(), hostfuncs.FsReadRequest{Path: path})
		require.NoError(t, err)
		assert.Equal(t, 5, resp.Size)
		decoded, err := base64.StdEncoding.DecodeString(resp.Content)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(decoded))
	})

	t.Run("should deny a read outside the granted subtree", func(t *testing.T) {
		env := hostfuncs.NewEnv(allowScopes(scope))
		_, err := env.FsRead(callerCtx(), hostfuncs.FsReadRequest{Path: "/etc/passwd"})
		assert.ErrorIs(t, err, entities.ErrPermissionDenied)
	})

	t.Run("should deny a write with only a read grant", func(t *testing.T) {
		env := hostfuncs.NewEnv(allowScopes(scope))
		_, err := env.FsWrite(callerCtx(), hostfuncs.FsWriteRequest{
			Path:    filepath.Join(dir, "out.txt"),
			Content: base64.StdEncoding.EncodeToString([]byte("x")),
		})
		assert.ErrorIs(t, err, entities.ErrPermissionDenied)
	})

	t.Run("should write with a write grant", func(t *testing.T) {
		env := hostfuncs.NewEnv(allowScopes(writeScope))
		path := filepath.Join(dir, "out.txt")
		resp, err := env.FsWrite(callerCtx(), hostfuncs.FsWriteRequest{
			Path:    path,
			Content: base64.StdEncoding.EncodeToString([]byte("data")),
		})
		require.NoError(t, err)
		assert.Equal(t, 4, resp.Written)

		onDisk, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "data", string(onDisk))
	})

	t.Run("should fail without extension identity in context", func(t *testing.T) {
		env := hostfuncs.NewEnv(allowScopes(scope))
		_, err := env.FsRead(context.Background(), hostfuncs.FsReadRequest{Path: filepath.Join(dir, "note.txt")})
		assert.Error(t, err)
	})
}

func TestUsageLogRecording(t *testing.T) {
	t.Run("should record authorized operations only", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "a.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

		usage := hostfuncs.NewUsageLog()
		env := hostfuncs.NewEnv(
			allowScopes(entities.Capability{Category: entities.CategoryFilesystem, Scope: "read:" + dir + "/**"}),
			hostfuncs.WithUsageLog(usage),
		)

		_, err := env.FsRead(callerCtx(), hostfuncs.FsReadRequest{Path: path})
		require.NoError(t, err)
		_, err = env.FsRead(callerCtx(), hostfuncs.FsReadRequest{Path: "/etc/passwd"})
		require.Error(t, err)

		ops := usage.Operations(extID)
		require.Len(t, ops, 1, "denied calls must not be recorded")
		assert.Equal(t, path, ops[0].Target)

		caps := usage.ObservedCapabilities(extID)
		require.Len(t, caps, 1)
		assert.Equal(t, entities.CategoryFilesystem, caps[0].Category)
		assert.Equal(t, "read:"+path, caps[0].Scope)
	})
}

func TestClipboardHandlers(t *testing.T) {
	readCap := entities.Capability{Category: entities.CategoryClipboard, Scope: "read"}
	writeCap := entities.Capability{Category: entities.CategoryClipboard, Scope: "write"}

	t.Run("should round-trip clipboard content", func(t *testing.T) {
		env := hostfuncs.NewEnv(allowScopes(readCap, writeCap))

		_, err := env.ClipboardWrite(callerCtx(), hostfuncs.ClipboardWriteRequest{Content: "copied"})
		require.NoError(t, err)

		resp, err := env.ClipboardRead(callerCtx(), hostfuncs.ClipboardReadRequest{})
		require.NoError(t, err)
		assert.Equal(t, "copied", resp.Content)
	})

	t.Run("should deny read with only a write grant", func(t *testing.T) {
		env := hostfuncs.NewEnv(allowScopes(writeCap))
		_, err := env.ClipboardRead(callerCtx(), hostfuncs.ClipboardReadRequest{})
		assert.ErrorIs(t, err, entities.ErrPermissionDenied)
	})
}

func TestIpcHandlers(t *testing.T) {
	sendCap := entities.Capability{Category: entities.CategoryIpc, Scope: "send:updates"}
	recvCap := entities.Capability{Category: entities.CategoryIpc, Scope: "receive:updates"}

	t.Run("should round-trip a message over a granted channel", func(t *testing.T) {
		env := hostfuncs.NewEnv(allowScopes(sendCap, recvCap))
		payload := base64.StdEncoding.EncodeToString([]byte(`{"v":1}`))

		_, err := env.IpcSend(callerCtx(), hostfuncs.IpcSendRequest{Channel: "updates", Data: payload})
		require.NoError(t, err)

		resp, err := env.IpcReceive(callerCtx(), hostfuncs.IpcReceiveRequest{Channel: "updates"})
		require.NoError(t, err)
		require.True(t, resp.Ok)
		assert.Equal(t, payload, resp.Data)
	})

	t.Run("should report empty channel without error", func(t *testing.T) {
		env := hostfuncs.NewEnv(allowScopes(recvCap))
		resp, err := env.IpcReceive(callerCtx(), hostfuncs.IpcReceiveRequest{Channel: "updates"})
		require.NoError(t, err)
		assert.False(t, resp.Ok)
	})

	t.Run("should deny an ungranted channel", func(t *testing.T) {
		env := hostfuncs.NewEnv(allowScopes(sendCap))
		_, err := env.IpcSend(callerCtx(), hostfuncs.IpcSendRequest{Channel: "secrets", Data: ""})
		assert.ErrorIs(t, err, entities.ErrPermissionDenied)
	})
}

func TestShellHandler(t *testing.T) {
	execCap := entities.Capability{Category: entities.CategoryShell, Scope: "exec:git"}

	t.Run("should deny ungranted command", func(t *testing.T) {
		env := hostfuncs.NewEnv(allowScopes(execCap))
		_, err := env.ShellExec(callerCtx(), hostfuncs.ShellExecRequest{Command: "rm", Args: []string{"-rf", "/"}})
		assert.ErrorIs(t, err, entities.ErrPermissionDenied)
	})

	t.Run("should run granted command through the runner", func(t *testing.T) {
		services := hostfuncs.DefaultServices()
		services.Runner = stubRunner{result: hostfuncs.CommandResult{Stdout: "ok", ExitCode: 0}}
		env := hostfuncs.NewEnv(allowScopes(execCap), hostfuncs.WithServices(services))

		resp, err := env.ShellExec(callerCtx(), hostfuncs.ShellExecRequest{Command: "git", Args: []string{"status"}})
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Stdout)
		assert.Zero(t, resp.ExitCode)
	})
}

type stubRunner struct {
	result hostfuncs.CommandResult
}

func (r stubRunner) Run(_ context.Context, _ string, _ []string) (hostfuncs.CommandResult, error) {
	return r.result, nil
}

func TestErrorMapping(t *testing.T) {
	t.Run("should serialize denial as structured JSON through the registry", func(t *testing.T) {
		env := hostfuncs.NewEnv(allowScopes()) // grants nothing
		registry, err := hostfuncs.NewRegistry(hostfuncs.WithCapabilityBundle(env))
		require.NoError(t, err)

		resp, err := registry.Invoke(callerCtx(), hostfuncs.FuncClipboardRead, []byte(`{}`))
		require.NoError(t, err, "handler errors must become JSON, not Go errors")

		var errResp hostfuncs.ErrorResponse
		require.NoError(t, json.Unmarshal(resp, &errResp))
		assert.Equal(t, hostfuncs.CodePermissionDenied, errResp.Error)
		assert.Equal(t, 403, errResp.Code)
	})

	t.Run("should map context cancellation to the cancelled code", func(t *testing.T) {
		errResp := hostfuncs.FromError(context.Canceled)
		assert.Equal(t, hostfuncs.CodeCancelled, errResp.Error)
	})

	t.Run("should map deadline exceeded to the resource code", func(t *testing.T) {
		errResp := hostfuncs.FromError(context.DeadlineExceeded)
		assert.Equal(t, hostfuncs.CodeResourceExceeded, errResp.Error)
	})
}
