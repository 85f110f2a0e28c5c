package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"
)

// HostFunc is a typed host function: context and request in, response
// or error out. Errors are mapped to the wire error taxonomy before
// reaching the extension.
type HostFunc[Req any, Resp any] func(context.Context, Req) (Resp, error)

// ByteHandler accepts raw JSON bytes and returns raw JSON bytes. This
// is the common shape WASM runtimes dispatch on.
type ByteHandler func(context.Context, []byte) ([]byte, error)

// NewJSONHandler wraps a typed HostFunc into a ByteHandler, handling
// JSON decoding of the request and encoding of the response. Handler
// errors become structured ErrorResponse JSON, not Go errors, so the
// guest always receives a parseable reply.
func NewJSONHandler[Req any, Resp any](fn HostFunc[Req, Resp]) ByteHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var req Req
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return NewValidationError(fmt.Sprintf("failed to unmarshal request: %v", err)).ToJSON(), nil
			}
		}

		resp, err := fn(ctx, req)
		if err != nil {
			return FromError(err).ToJSON(), nil
		}

		respBytes, err := json.Marshal(resp)
		if err != nil {
			return NewInternalError(fmt.Sprintf("failed to marshal response: %v", err)).ToJSON(), nil
		}
		return respBytes, nil
	}
}
