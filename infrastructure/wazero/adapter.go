// Package wazero adapts the host function registry to the wazero
// runtime.
package wazero

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oxidekit/oxidekit-core/hostfuncs"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// DefaultModuleName is the import module name guests link against.
const DefaultModuleName = "oxide_host"

// DefaultMaxRequestSize bounds a single request read from guest
// memory.
const DefaultMaxRequestSize uint32 = 1 << 20 // 1MB

// AdapterConfig holds configuration for the wazero adapter.
type AdapterConfig struct {
	// ModuleName is the host module name (default: "oxide_host").
	ModuleName string

	// MaxRequestSize limits the size of incoming requests from guest
	// memory. Default is 1MB.
	MaxRequestSize uint32
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name.
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.ModuleName = name
	}
}

// WithMaxRequestSize sets the maximum request size from guest memory.
func WithMaxRequestSize(size uint32) AdapterOption {
	return func(c *AdapterConfig) {
		c.MaxRequestSize = size
	}
}

func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		ModuleName:     DefaultModuleName,
		MaxRequestSize: DefaultMaxRequestSize,
	}
}

// RegisterWithRuntime registers all handlers from a HandlerRegistry
// with a wazero runtime under the configured host module name.
//
// Each handler is wrapped to:
//   - Read request bytes from guest memory using the packed i64 ptr+len format
//   - Invoke the ByteHandler with the request payload
//   - Allocate response memory in the guest using the "allocate" export
//   - Write response bytes to guest memory
//   - Return packed i64 ptr+len of the response
func RegisterWithRuntime(ctx context.Context, runtime wazero.Runtime, registry *hostfuncs.HandlerRegistry, opts ...AdapterOption) error {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)

	for _, name := range registry.Names() {
		funcName := name // capture for closure
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				handleRegistryCall(ctx, mod, stack, registry, funcName, cfg.MaxRequestSize)
			}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
			Export(funcName)
	}

	// log_message takes a packed payload and returns nothing. It is
	// always available and needs no capability.
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(handleLogMessage),
			[]api.ValueType{api.ValueTypeI64}, nil).
		Export("log_message")

	_, err := builder.Instantiate(ctx)
	return err
}

// handleRegistryCall reads the request from guest memory, invokes the
// handler, and writes the response back.
func handleRegistryCall(ctx context.Context, mod api.Module, stack []uint64, registry *hostfuncs.HandlerRegistry, name string, maxRequestSize uint32) {
	ptr, length := unpackPtrLen(stack[0])

	if length > maxRequestSize {
		errMsg := fmt.Sprintf("request size %d exceeds maximum %d bytes", length, maxRequestSize)
		slog.ErrorContext(ctx, "wazero: "+errMsg, "function", name)
		stack[0] = writeErrorResponse(ctx, mod, hostfuncs.NewValidationError(errMsg))
		return
	}

	requestBytes, ok := mod.Memory().Read(ptr, length)
	if !ok {
		errMsg := "failed to read request from guest memory"
		slog.ErrorContext(ctx, "wazero: "+errMsg, "function", name)
		stack[0] = writeErrorResponse(ctx, mod, hostfuncs.NewInternalError(errMsg))
		return
	}

	responseBytes, err := registry.Invoke(ctx, name, requestBytes)
	if err != nil {
		slog.ErrorContext(ctx, "wazero: handler invocation failed", "function", name, "error", err)
		stack[0] = writeErrorResponse(ctx, mod, hostfuncs.NewInternalError(err.Error()))
		return
	}

	stack[0] = writeResponse(ctx, mod, responseBytes)
}

func handleLogMessage(ctx context.Context, mod api.Module, stack []uint64) {
	ptr, length := unpackPtrLen(stack[0])
	payload, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return
	}
	ext, _ := hostfuncs.ExtensionIDFromContext(ctx)
	slog.Info("extension log", "extension", ext, "message", string(payload))
}

// writeResponse allocates memory in the guest and writes the response
// bytes. Returns packed ptr+len or 0 on failure.
func writeResponse(ctx context.Context, mod api.Module, data []byte) uint64 {
	allocateFn := mod.ExportedFunction("allocate")
	if allocateFn == nil {
		slog.ErrorContext(ctx, "wazero: guest module missing 'allocate' export")
		return 0
	}

	results, err := allocateFn.Call(ctx, uint64(len(data)))
	if err != nil {
		slog.ErrorContext(ctx, "wazero: failed to call guest allocate", "error", err)
		return 0
	}
	ptr := uint32(results[0]) //nolint:gosec // G115: WASM32 pointers are always 32-bit

	if !mod.Memory().Write(ptr, data) {
		slog.ErrorContext(ctx, "wazero: failed to write response to guest memory")
		return 0
	}

	return packPtrLen(ptr, uint32(len(data))) //nolint:gosec // G115: Data length is bounded by config
}

func writeErrorResponse(ctx context.Context, mod api.Module, errResp hostfuncs.ErrorResponse) uint64 {
	return writeResponse(ctx, mod, errResp.ToJSON())
}

// packPtrLen packs a pointer and length into a single i64.
// Upper 32 bits: pointer, lower 32 bits: length.
func packPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << 32) | uint64(length)
}

// unpackPtrLen unpacks a pointer and length from a packed i64.
func unpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> 32)           //nolint:gosec // G115: Packed format stores 32-bit values
	length = uint32(packed & 0xFFFFFFFF) //nolint:gosec // G115: Packed format stores 32-bit values
	return ptr, length
}
