package hostfuncs

import (
	"context"
	"log/slog"
	"time"
)

// Middleware wraps a ByteHandler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first).
type Middleware func(next ByteHandler) ByteHandler

// PanicRecoveryMiddleware catches panics and converts them to
// structured ErrorResponse JSON instead of crashing the host. A
// misbehaving extension is isolated; the host continues.
func PanicRecoveryMiddleware() Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) (resp []byte, err error) {
			defer func() {
				if r := recover(); r != nil {
					name, _ := FunctionNameFromContext(ctx)
					slog.Error("host function panicked", "function", name, "panic", r)
					resp = NewPanicError(r).ToJSON()
					err = nil
				}
			}()
			return next(ctx, payload)
		}
	}
}

// SlogMiddleware logs host function invocations with timing through
// the default structured logger.
func SlogMiddleware() Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			name, _ := FunctionNameFromContext(ctx)
			ext, _ := ExtensionIDFromContext(ctx)
			start := time.Now()
			resp, err := next(ctx, payload)
			slog.Debug("host function invoked",
				"function", name,
				"extension", ext,
				"duration", time.Since(start),
				"error", err,
			)
			return resp, err
		}
	}
}
