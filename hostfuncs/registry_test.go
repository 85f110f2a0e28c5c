package hostfuncs_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxidekit/oxidekit-core/hostfuncs"
)

func echoHandler(ctx context.Context, payload []byte) ([]byte, error) {
	return payload, nil
}

func TestRegistry(t *testing.T) {
	t.Run("should dispatch by name", func(t *testing.T) {
		registry, err := hostfuncs.NewRegistry(
			hostfuncs.WithByteHandler("echo", echoHandler),
		)
		require.NoError(t, err)

		resp, err := registry.Invoke(context.Background(), "echo", []byte("ping"))
		require.NoError(t, err)
		assert.Equal(t, "ping", string(resp))
	})

	t.Run("should return NOT_FOUND JSON for unknown names", func(t *testing.T) {
		registry, err := hostfuncs.NewRegistry()
		require.NoError(t, err)

		resp, err := registry.Invoke(context.Background(), "nope", nil)
		require.NoError(t, err)

		var errResp hostfuncs.ErrorResponse
		require.NoError(t, json.Unmarshal(resp, &errResp))
		assert.Equal(t, hostfuncs.CodeNotFound, errResp.Error)
	})

	t.Run("should reject duplicate handler names", func(t *testing.T) {
		_, err := hostfuncs.NewRegistry(
			hostfuncs.WithByteHandler("echo", echoHandler),
			hostfuncs.WithByteHandler("echo", echoHandler),
		)
		assert.ErrorContains(t, err, "duplicate handler name")
	})

	t.Run("should reject empty handler names", func(t *testing.T) {
		_, err := hostfuncs.NewRegistry(
			hostfuncs.WithByteHandler("", echoHandler),
		)
		assert.Error(t, err)
	})

	t.Run("should list registered names sorted", func(t *testing.T) {
		registry, err := hostfuncs.NewRegistry(
			hostfuncs.WithByteHandler("zeta", echoHandler),
			hostfuncs.WithByteHandler("alpha", echoHandler),
		)
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "zeta"}, registry.Names())
		assert.True(t, registry.Has("alpha"))
		assert.False(t, registry.Has("beta"))
	})

	t.Run("should register the full capability bundle", func(t *testing.T) {
		env := hostfuncs.NewEnv(allowScopes())
		registry, err := hostfuncs.NewRegistry(hostfuncs.WithCapabilityBundle(env))
		require.NoError(t, err)
		for _, name := range []string{
			hostfuncs.FuncFsRead, hostfuncs.FuncFsWrite, hostfuncs.FuncNetFetch,
			hostfuncs.FuncIpcSend, hostfuncs.FuncIpcReceive, hostfuncs.FuncHwAccess,
			hostfuncs.FuncClipboardRead, hostfuncs.FuncClipboardWrite,
			hostfuncs.FuncNotifyPost, hostfuncs.FuncShellExec,
		} {
			assert.True(t, registry.Has(name), name)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("should apply middleware in FIFO order", func(t *testing.T) {
		var order []string
		tag := func(name string) hostfuncs.Middleware {
			return func(next hostfuncs.ByteHandler) hostfuncs.ByteHandler {
				return func(ctx context.Context, payload []byte) ([]byte, error) {
					order = append(order, name)
					return next(ctx, payload)
				}
			}
		}

		registry, err := hostfuncs.NewRegistry(
			hostfuncs.WithByteHandler("echo", echoHandler),
			hostfuncs.WithMiddleware(tag("outer"), tag("inner")),
		)
		require.NoError(t, err)

		_, err = registry.Invoke(context.Background(), "echo", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"outer", "inner"}, order)
	})

	t.Run("should convert panics to internal error JSON", func(t *testing.T) {
		registry, err := hostfuncs.NewRegistry(
			hostfuncs.WithByteHandler("boom", func(ctx context.Context, payload []byte) ([]byte, error) {
				panic("handler exploded")
			}),
			hostfuncs.WithMiddleware(hostfuncs.PanicRecoveryMiddleware()),
		)
		require.NoError(t, err)

		resp, err := registry.Invoke(context.Background(), "boom", nil)
		require.NoError(t, err, "panic must not escape as a Go error")

		var errResp hostfuncs.ErrorResponse
		require.NoError(t, json.Unmarshal(resp, &errResp))
		assert.Equal(t, hostfuncs.CodeInternal, errResp.Error)
		assert.Contains(t, errResp.Message, "handler exploded")
	})
}

func TestJSONHandler(t *testing.T) {
	type req struct {
		Name string `json:"name"`
	}
	type resp struct {
		Greeting string `json:"greeting"`
	}

	t.Run("should decode request and encode response", func(t *testing.T) {
		handler := hostfuncs.NewJSONHandler(func(ctx context.Context, r req) (resp, error) {
			return resp{Greeting: "hello " + r.Name}, nil
		})

		out, err := handler(context.Background(), []byte(`{"name":"ada"}`))
		require.NoError(t, err)

		var got resp
		require.NoError(t, json.Unmarshal(out, &got))
		assert.Equal(t, "hello ada", got.Greeting)
	})

	t.Run("should return validation error JSON for malformed requests", func(t *testing.T) {
		handler := hostfuncs.NewJSONHandler(func(ctx context.Context, r req) (resp, error) {
			return resp{}, nil
		})

		out, err := handler(context.Background(), []byte(`{not json`))
		require.NoError(t, err)

		var errResp hostfuncs.ErrorResponse
		require.NoError(t, json.Unmarshal(out, &errResp))
		assert.Equal(t, hostfuncs.CodeValidation, errResp.Error)
	})

	t.Run("should tolerate empty payloads", func(t *testing.T) {
		handler := hostfuncs.NewJSONHandler(func(ctx context.Context, r req) (resp, error) {
			return resp{Greeting: "hello"}, nil
		})

		out, err := handler(context.Background(), nil)
		require.NoError(t, err)

		var got resp
		require.NoError(t, json.Unmarshal(out, &got))
		assert.Equal(t, "hello", got.Greeting)
	})
}
