package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"

	"github.com/oxidekit/oxidekit-core/domain/entities"
	"github.com/oxidekit/oxidekit-core/hostfuncs"
)

// Handle is a running extension sandbox. All invocations flow through
// it so the supervisor can drain them on unload.
type Handle struct {
	extensionID string
	runtime     closer
	module      api.Module
	lifeCtx     context.Context
	cancel      context.CancelFunc
	callTimeout time.Duration

	inFlight sync.WaitGroup
	closing  atomic.Bool
}

type closer interface {
	Close(ctx context.Context) error
}

// ExtensionID returns the identity this sandbox runs as.
func (h *Handle) ExtensionID() string { return h.extensionID }

// Exports returns whether the guest exports the named function.
func (h *Handle) Exports(name string) bool {
	return h.module.ExportedFunction(name) != nil
}

// Invoke calls the named guest export with a JSON payload and returns
// the guest's JSON response. The call runs under the per-call time
// budget; exceeding it returns a resource error, and an unload during
// the call returns a cancellation error.
func (h *Handle) Invoke(ctx context.Context, export string, payload []byte) ([]byte, error) {
	if h.closing.Load() {
		return nil, fmt.Errorf("%w: extension %q is unloading", entities.ErrCancelled, h.extensionID)
	}
	h.inFlight.Add(1)
	defer h.inFlight.Done()

	fn := h.module.ExportedFunction(export)
	if fn == nil {
		return nil, fmt.Errorf("extension %q does not export %q", h.extensionID, export)
	}

	// The call context is bounded by the caller's context, the
	// sandbox's lifetime, and the call timeout. The runtime closes on
	// context done, so any of the three aborts running guest code.
	callCtx, cancel := context.WithTimeout(ctx, h.callTimeout)
	defer cancel()
	stop := context.AfterFunc(h.lifeCtx, cancel)
	defer stop()
	callCtx = hostfuncs.WithExtensionID(callCtx, h.extensionID)

	var results []uint64
	var err error
	if len(payload) == 0 {
		results, err = fn.Call(callCtx)
	} else {
		packed, allocErr := h.writeGuestMemory(callCtx, payload)
		if allocErr != nil {
			return nil, allocErr
		}
		results, err = fn.Call(callCtx, packed)
	}
	if err != nil {
		return nil, h.mapCallError(callCtx, err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	ptr := uint32(results[0] >> 32)
	length := uint32(results[0])
	if length == 0 {
		return nil, nil
	}
	data, ok := h.module.Memory().Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("failed to read response from extension %q memory", h.extensionID)
	}
	out := make([]byte, length)
	copy(out, data)
	return out, nil
}

// writeGuestMemory allocates guest memory via the "allocate" export,
// writes the payload, and returns the packed ptr+len.
func (h *Handle) writeGuestMemory(ctx context.Context, payload []byte) (uint64, error) {
	allocate := h.module.ExportedFunction("allocate")
	if allocate == nil {
		return 0, fmt.Errorf("extension %q does not export 'allocate'", h.extensionID)
	}
	results, err := allocate.Call(ctx, uint64(len(payload)))
	if err != nil {
		return 0, fmt.Errorf("guest allocate failed: %w", err)
	}
	ptr := uint32(results[0]) //nolint:gosec // G115: WASM32 pointers are always 32-bit
	if !h.module.Memory().Write(ptr, payload) {
		return 0, fmt.Errorf("failed to write request to extension %q memory", h.extensionID)
	}
	return (uint64(ptr) << 32) | uint64(len(payload)), nil
}

// mapCallError distinguishes a blown time budget from an unload, and
// surfaces guest exits as ordinary errors.
func (h *Handle) mapCallError(ctx context.Context, err error) error {
	switch {
	case h.lifeCtx.Err() != nil:
		return fmt.Errorf("%w: extension %q unloaded during call", entities.ErrCancelled, h.extensionID)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: call exceeded %s time budget", entities.ErrResourceExceeded, h.callTimeout)
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%w: call cancelled", entities.ErrCancelled)
	}
	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("extension %q exited with code %d", h.extensionID, exitErr.ExitCode())
	}
	return fmt.Errorf("invocation failed: %w", err)
}

// close cancels the sandbox lifetime, drains in-flight calls, and
// releases the runtime.
func (h *Handle) close(ctx context.Context) {
	if !h.closing.CompareAndSwap(false, true) {
		return
	}
	h.cancel()
	h.inFlight.Wait()
	_ = h.runtime.Close(ctx)
}
