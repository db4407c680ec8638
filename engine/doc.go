// Package engine wraps wazero for guests linked against the Opus bridge.
//
// The engine package provides three main types:
//
//	WazeroEngine   - Owns the wazero runtime, WASI preview1 and host modules
//	WazeroModule   - A compiled core module, can create instances
//	WazeroInstance - A running guest with exports and linear memory
//
// WazeroMemory adapts a guest's exported memory to transcoder.Memory, so the
// bridge's buffer copies can read and write guest regions with explicit
// bounds checks.
//
// # Thread Safety
//
// WazeroEngine and WazeroModule are safe for concurrent use.
// WazeroInstance is NOT thread-safe and should be used by a single goroutine.
//
// Most users should use the runtime package for a simpler API.
package engine
