// Package hostfuncs implements the capability-gated host function
// surface exposed to sandboxed extensions.
//
// Every host function re-checks the caller's live tokens through the
// broker before performing its effect; there is no grant caching, so a
// revocation takes effect on the very next call. Handler errors are
// serialized as structured JSON error responses rather than WASM
// traps, keeping a misbehaving extension from crashing the host.
package hostfuncs
