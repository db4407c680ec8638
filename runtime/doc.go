// Package runtime runs WebAssembly guests linked against the Opus bridge.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx, runtime.DefaultConfig(libopus.New()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	mod, err := rt.LoadWASM(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	results, err := inst.Call(ctx, "run")
//
// # Host Module
//
// Each runtime owns one bridge and serves it as the "opus" import module
// (see the linker package for the ABI). Imports from it are checked when
// the guest is loaded, so a wrong signature fails at LoadWASM rather than
// at instantiation.
//
// # Errors
//
// Load, link and call failures are *errors.Error values with PhaseLoad,
// PhaseLink or PhaseRuntime. Bridge failures inside a guest call are
// reported to the guest as status codes; Instance.LastError returns the
// message.
package runtime
