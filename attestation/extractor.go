package attestation

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"

	"github.com/oxidekit/oxidekit-core/domain/entities"
	"github.com/oxidekit/oxidekit-core/domain/ports"
	"github.com/oxidekit/oxidekit-core/hostfuncs"
	wazeroadapter "github.com/oxidekit/oxidekit-core/infrastructure/wazero"
)

// hostImportCapabilities maps host function import names to the
// verb-level capability each one exercises.
var hostImportCapabilities = map[string]entities.Capability{
	hostfuncs.FuncFsRead:         {Category: entities.CategoryFilesystem, Scope: "read"},
	hostfuncs.FuncFsWrite:        {Category: entities.CategoryFilesystem, Scope: "write"},
	hostfuncs.FuncNetFetch:       {Category: entities.CategoryNetwork, Scope: "connect"},
	hostfuncs.FuncIpcSend:        {Category: entities.CategoryIpc, Scope: "send"},
	hostfuncs.FuncIpcReceive:     {Category: entities.CategoryIpc, Scope: "receive"},
	hostfuncs.FuncHwAccess:       {Category: entities.CategoryHardware, Scope: "access"},
	hostfuncs.FuncClipboardRead:  {Category: entities.CategoryClipboard, Scope: "read"},
	hostfuncs.FuncClipboardWrite: {Category: entities.CategoryClipboard, Scope: "write"},
	hostfuncs.FuncNotifyPost:     {Category: entities.CategoryNotification, Scope: "post"},
	hostfuncs.FuncShellExec:      {Category: entities.CategoryShell, Scope: "exec"},
}

// StaticExtractor derives observed capabilities from the WASM module's
// import section without executing it. Granularity is verb-level: the
// import tells us the module can call fs_read, not which paths it will
// read.
type StaticExtractor struct {
	hostModule string
}

var _ ports.UsageExtractor = (*StaticExtractor)(nil)

// NewStaticExtractor creates an extractor matching imports against the
// default host module name.
func NewStaticExtractor() *StaticExtractor {
	return &StaticExtractor{hostModule: wazeroadapter.DefaultModuleName}
}

// Extract compiles the bundle's module and returns the capability for
// each gated host function it imports. A module that fails to compile
// yields an analysis error, which the engine maps to an Error verdict.
func (x *StaticExtractor) Extract(ctx context.Context, bundle *entities.Bundle) ([]entities.Capability, error) {
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, bundle.Module)
	if err != nil {
		return nil, fmt.Errorf("%w: module does not compile: %v", entities.ErrAnalysis, err)
	}
	defer compiled.Close(ctx)

	var out []entities.Capability
	seen := make(map[string]struct{})
	for _, fn := range compiled.ImportedFunctions() {
		module, name, ok := fn.Import()
		if !ok || module != x.hostModule {
			continue
		}
		cap, gated := hostImportCapabilities[name]
		if !gated {
			continue
		}
		if _, dup := seen[cap.Canonical()]; dup {
			continue
		}
		seen[cap.Canonical()] = struct{}{}
		out = append(out, cap)
	}
	return out, nil
}

// TraceExtractor derives observed capabilities from a usage log
// recorded during a representative sandboxed run. Granularity is
// concrete: exact paths, hosts and channels the extension touched.
type TraceExtractor struct {
	usage *hostfuncs.UsageLog
}

var _ ports.UsageExtractor = (*TraceExtractor)(nil)

// NewTraceExtractor creates an extractor replaying the given usage log.
func NewTraceExtractor(usage *hostfuncs.UsageLog) *TraceExtractor {
	return &TraceExtractor{usage: usage}
}

// Extract returns the capabilities exercised by the bundle's extension
// during the traced run. An empty trace is an analysis error: absence
// of observations must not read as absence of behavior.
func (x *TraceExtractor) Extract(_ context.Context, bundle *entities.Bundle) ([]entities.Capability, error) {
	if bundle.Manifest == nil {
		return nil, fmt.Errorf("%w: bundle has no parsed manifest", entities.ErrAnalysis)
	}
	caps := x.usage.ObservedCapabilities(bundle.Manifest.ExtensionID)
	if len(caps) == 0 {
		return nil, fmt.Errorf("%w: no trace recorded for extension %q", entities.ErrAnalysis, bundle.Manifest.ExtensionID)
	}
	return caps, nil
}
