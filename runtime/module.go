package runtime

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/plasmoverse/opusbridge/engine"
	"github.com/plasmoverse/opusbridge/errors"
)

type Module struct {
	runtime      *Runtime
	wazeroModule *engine.WazeroModule
}

// InstanceOptions configures one guest instance.
type InstanceOptions struct {
	// Name identifies the guest, including for last_error. Empty generates
	// a unique name.
	Name   string
	Args   []string
	Stdout io.Writer
	Stderr io.Writer
}

// Imports returns "module.name" for every imported function.
func (m *Module) Imports() []string {
	return m.wazeroModule.ImportNames()
}

// Exports returns the exported function names.
func (m *Module) Exports() []string {
	return m.wazeroModule.ExportNames()
}

func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	return m.InstantiateWithOptions(ctx, InstanceOptions{})
}

// InstantiateWithOptions creates a guest instance. "_start" is not run
// here; call it through Instance.Call.
func (m *Module) InstantiateWithOptions(ctx context.Context, opts InstanceOptions) (*Instance, error) {
	if m.runtime.closed.Load() {
		return nil, errors.State(errors.PhaseLink, "runtime closed", nil)
	}

	name := opts.Name
	if name == "" {
		name = "guest-" + uuid.NewString()
	}

	wazeroInstance, err := m.wazeroModule.InstantiateWithConfig(ctx, &engine.InstanceConfig{
		Name:   name,
		Args:   opts.Args,
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
	})
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLink, errors.KindConstruction, err, "instantiate module")
	}

	return &Instance{
		module:         m,
		wazeroInstance: wazeroInstance,
		name:           name,
	}, nil
}

// Close releases the compiled module. Instances stay usable.
func (m *Module) Close(ctx context.Context) error {
	return m.wazeroModule.Close(ctx)
}
