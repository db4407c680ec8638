package runtime

import (
	"context"
	stderrors "errors"

	"github.com/tetratelabs/wazero/sys"

	"github.com/plasmoverse/opusbridge/engine"
	"github.com/plasmoverse/opusbridge/errors"
)

type Instance struct {
	module         *Module
	wazeroInstance *engine.WazeroInstance
	name           string
}

// Name returns the guest name.
func (i *Instance) Name() string {
	return i.name
}

// Call invokes an exported function with raw core-wasm values. A WASI exit
// with code 0 counts as success and returns no results.
func (i *Instance) Call(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	if i.wazeroInstance == nil {
		return nil, errors.State(errors.PhaseRuntime, "instance closed", nil)
	}

	fn := i.wazeroInstance.GetExportedFunction(name)
	if fn == nil {
		return nil, errors.Argument(errors.PhaseRuntime, "function not exported", name)
	}
	if want := len(fn.Definition().ParamTypes()); want != len(args) {
		return nil, errors.New(errors.PhaseRuntime, errors.KindArgument).
			Detail("function %s takes %d params, got %d", name, want, len(args)).
			Value(name).
			Build()
	}

	results, err := fn.Call(ctx, args...)
	if err != nil {
		var exitErr *sys.ExitError
		if stderrors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
			return nil, nil
		}
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindCodec, err, "call "+name)
	}
	return results, nil
}

// Memory returns the guest's exported memory, or nil.
func (i *Instance) Memory() *engine.WazeroMemory {
	if i.wazeroInstance == nil {
		return nil
	}
	return i.wazeroInstance.Memory()
}

// LastError returns the last bridge failure message recorded for this guest.
func (i *Instance) LastError() string {
	return i.module.runtime.host.LastError(i.name)
}

func (i *Instance) Close(ctx context.Context) error {
	if i.wazeroInstance == nil {
		return nil
	}
	i.module.runtime.host.Forget(i.name)
	err := i.wazeroInstance.Close(ctx)
	i.wazeroInstance = nil
	return err
}
