package runtime

import (
	"context"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/plasmoverse/opusbridge"
	"github.com/plasmoverse/opusbridge/codec"
	"github.com/plasmoverse/opusbridge/engine"
	"github.com/plasmoverse/opusbridge/errors"
	"github.com/plasmoverse/opusbridge/linker"
)

// Config holds runtime configuration.
type Config struct {
	// Bridge configures the bridge guests are linked against.
	Bridge opusbridge.Config

	// WASI instantiates WASI preview1 for guests that import it.
	WASI bool

	// HostModule is the import module name of the bridge. Default "opus".
	HostModule string

	// MemoryLimitPages caps guest memory in 64KB pages. 0 means no limit.
	MemoryLimitPages uint32
}

// DefaultConfig returns a configuration with WASI enabled and the bridge
// served as "opus".
func DefaultConfig(eng codec.Engine) Config {
	return Config{
		Bridge:     opusbridge.DefaultConfig(eng),
		WASI:       true,
		HostModule: linker.OpusModuleName,
	}
}

type Runtime struct {
	engine *engine.WazeroEngine
	linker *linker.Linker
	host   *linker.OpusHost
	bridge *opusbridge.Bridge
	logger *zap.Logger
	cfg    Config
	closed atomic.Bool
}

// New creates a runtime with its own bridge and links the host module.
func New(ctx context.Context, cfg Config) (*Runtime, error) {
	if cfg.HostModule == "" {
		cfg.HostModule = linker.OpusModuleName
	}

	bridge, err := opusbridge.New(cfg.Bridge)
	if err != nil {
		return nil, err
	}

	eng, err := engine.NewWazeroEngineWithConfig(ctx, &engine.Config{
		MemoryLimitPages: cfg.MemoryLimitPages,
	})
	if err != nil {
		_ = bridge.Close()
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindConstruction, err, "create engine")
	}

	logger := cfg.Bridge.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Runtime{
		engine: eng,
		linker: linker.New(eng.Runtime()),
		host:   linker.NewOpusHost(bridge),
		bridge: bridge,
		logger: logger,
		cfg:    cfg,
	}

	if cfg.WASI {
		if err := eng.InitWASI(ctx); err != nil {
			_ = r.Close(ctx)
			return nil, errors.Wrap(errors.PhaseLink, errors.KindConstruction, err, "instantiate WASI")
		}
	}
	if _, err := r.host.Link(ctx, r.linker, cfg.HostModule); err != nil {
		_ = r.Close(ctx)
		return nil, errors.Wrap(errors.PhaseLink, errors.KindConstruction, err, "link host module")
	}

	logger.Debug("runtime created",
		zap.String("host_module", cfg.HostModule),
		zap.Bool("wasi", cfg.WASI))
	return r, nil
}

// Bridge returns the bridge guests are linked against.
func (r *Runtime) Bridge() *opusbridge.Bridge {
	return r.bridge
}

// Host returns the host module serving the bridge.
func (r *Runtime) Host() *linker.OpusHost {
	return r.host
}

// LoadWASM compiles a core WebAssembly module and checks its bridge imports.
func (r *Runtime) LoadWASM(ctx context.Context, wasm []byte) (*Module, error) {
	if r.closed.Load() {
		return nil, errors.State(errors.PhaseLoad, "runtime closed", nil)
	}

	wazeroModule, err := r.engine.LoadModule(ctx, wasm)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindArgument, err, "compile module")
	}

	if !r.cfg.WASI && wazeroModule.ImportsModule(engine.WASIModuleName) {
		_ = wazeroModule.Close(ctx)
		return nil, errors.Argument(errors.PhaseLoad, "module imports WASI but WASI is disabled", engine.WASIModuleName)
	}

	if err := r.linker.Check(wazeroModule.Compiled()); err != nil {
		_ = wazeroModule.Close(ctx)
		return nil, errors.Wrap(errors.PhaseLink, errors.KindConstruction, err, "resolve imports")
	}

	r.logger.Debug("module loaded",
		zap.Strings("imports", wazeroModule.ImportNames()),
		zap.Strings("exports", wazeroModule.ExportNames()))

	return &Module{
		runtime:      r,
		wazeroModule: wazeroModule,
	}, nil
}

// Close releases all runtime resources and frees every live session.
// All instances must be closed before calling this.
func (r *Runtime) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	return multierr.Combine(
		r.linker.Close(ctx),
		r.engine.Close(ctx),
		r.bridge.Close(),
	)
}
