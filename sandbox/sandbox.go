// Package sandbox runs extensions in isolated WASM runtimes with
// enforced memory and time budgets.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/oxidekit/oxidekit-core/domain/entities"
	"github.com/oxidekit/oxidekit-core/hostfuncs"
	wazeroadapter "github.com/oxidekit/oxidekit-core/infrastructure/wazero"
)

// Defaults for per-sandbox resource budgets.
const (
	// DefaultMemoryLimitPages caps guest linear memory at 64 MiB
	// (pages are 64 KiB).
	DefaultMemoryLimitPages uint32 = 1024

	// DefaultCallTimeout bounds a single guest invocation.
	DefaultCallTimeout = 5 * time.Second
)

type supervisorConfig struct {
	memoryLimitPages uint32
	callTimeout      time.Duration
	hostModuleName   string
	maxRequestSize   uint32
}

func defaultSupervisorConfig() supervisorConfig {
	return supervisorConfig{
		memoryLimitPages: DefaultMemoryLimitPages,
		callTimeout:      DefaultCallTimeout,
		hostModuleName:   wazeroadapter.DefaultModuleName,
		maxRequestSize:   wazeroadapter.DefaultMaxRequestSize,
	}
}

// Option configures a Supervisor.
type Option func(*supervisorConfig)

// WithMemoryLimitPages sets the guest linear memory cap in 64 KiB
// pages.
func WithMemoryLimitPages(pages uint32) Option {
	return func(c *supervisorConfig) {
		c.memoryLimitPages = pages
	}
}

// WithCallTimeout sets the per-invocation time budget.
func WithCallTimeout(d time.Duration) Option {
	return func(c *supervisorConfig) {
		c.callTimeout = d
	}
}

// WithHostModuleName sets the import module name guests link against.
func WithHostModuleName(name string) Option {
	return func(c *supervisorConfig) {
		c.hostModuleName = name
	}
}

// Supervisor owns the set of running sandboxes. Each loaded extension
// gets its own wazero runtime, so memory budgets are per-extension and
// no WASM state is shared between extensions.
type Supervisor struct {
	registry *hostfuncs.HandlerRegistry
	cfg      supervisorConfig

	mu        sync.Mutex
	sandboxes map[string]*Handle
	closed    bool
}

// NewSupervisor creates a Supervisor dispatching host calls through
// the given registry.
func NewSupervisor(registry *hostfuncs.HandlerRegistry, opts ...Option) *Supervisor {
	cfg := defaultSupervisorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Supervisor{
		registry:  registry,
		cfg:       cfg,
		sandboxes: make(map[string]*Handle),
	}
}

// Load instantiates the bundle's WASM module in a fresh sandbox bound
// to extensionID. Loading the same extension twice is an error; unload
// first.
func (s *Supervisor) Load(ctx context.Context, extensionID string, bundle *entities.Bundle) (*Handle, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.New("supervisor is shut down")
	}
	if _, exists := s.sandboxes[extensionID]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("extension %q is already loaded", extensionID)
	}
	s.mu.Unlock()

	// lifeCtx outlives the Load call: it is the sandbox's lifetime.
	// Cancelling it aborts in-flight guest code because the runtime is
	// built with CloseOnContextDone.
	lifeCtx, cancel := context.WithCancel(context.Background())

	runtimeCfg := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(s.cfg.memoryLimitPages).
		WithCloseOnContextDone(true)
	rt := wazero.NewRuntimeWithConfig(lifeCtx, runtimeCfg)

	fail := func(err error) (*Handle, error) {
		_ = rt.Close(lifeCtx)
		cancel()
		return nil, err
	}

	wasi_snapshot_preview1.MustInstantiate(lifeCtx, rt)

	if err := wazeroadapter.RegisterWithRuntime(lifeCtx, rt, s.registry,
		wazeroadapter.WithModuleName(s.cfg.hostModuleName),
		wazeroadapter.WithMaxRequestSize(s.cfg.maxRequestSize),
	); err != nil {
		return fail(fmt.Errorf("failed to register host functions: %w", err))
	}

	// The guest gets no pre-opened directories and no environment; all
	// effects go through the capability-gated host functions.
	modCfg := wazero.NewModuleConfig().WithName(extensionID)
	mod, err := rt.InstantiateWithConfig(
		hostfuncs.WithExtensionID(lifeCtx, extensionID),
		bundle.Module, modCfg,
	)
	if err != nil {
		return fail(fmt.Errorf("failed to instantiate extension module: %w", err))
	}

	h := &Handle{
		extensionID: extensionID,
		runtime:     rt,
		module:      mod,
		lifeCtx:     lifeCtx,
		cancel:      cancel,
		callTimeout: s.cfg.callTimeout,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		h.close(ctx)
		return nil, errors.New("supervisor is shut down")
	}
	if _, exists := s.sandboxes[extensionID]; exists {
		s.mu.Unlock()
		h.close(ctx)
		return nil, fmt.Errorf("extension %q is already loaded", extensionID)
	}
	s.sandboxes[extensionID] = h
	s.mu.Unlock()

	slog.Info("extension loaded", "extension", extensionID)
	return h, nil
}

// Handle returns the running sandbox for extensionID, if any.
func (s *Supervisor) Handle(extensionID string) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.sandboxes[extensionID]
	return h, ok
}

// Unload tears down the extension's sandbox. In-flight calls are
// cancelled and drained before the runtime is released; after Unload
// returns, nothing of the extension is still executing.
func (s *Supervisor) Unload(ctx context.Context, extensionID string) error {
	s.mu.Lock()
	h, ok := s.sandboxes[extensionID]
	delete(s.sandboxes, extensionID)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("extension %q is not loaded", extensionID)
	}

	h.close(ctx)
	slog.Info("extension unloaded", "extension", extensionID)
	return nil
}

// Shutdown unloads every sandbox and refuses further loads.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	handles := make([]*Handle, 0, len(s.sandboxes))
	for _, h := range s.sandboxes {
		handles = append(handles, h)
	}
	s.sandboxes = make(map[string]*Handle)
	s.mu.Unlock()

	for _, h := range handles {
		h.close(ctx)
	}
	return nil
}
