package engine

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

// WASIModuleName is the import module name of WASI preview1.
const WASIModuleName = wasi_snapshot_preview1.ModuleName

// WazeroEngine owns one wazero runtime shared by host modules and guests.
type WazeroEngine struct {
	runtime      wazero.Runtime
	wasiInitMu   sync.Mutex
	wasiInitDone atomic.Bool
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// CloseOnContextDone aborts guest calls when their context is canceled.
	CloseOnContextDone bool
}

// NewWazeroEngine creates a new wazero-based engine
func NewWazeroEngine(ctx context.Context) (*WazeroEngine, error) {
	return NewWazeroEngineWithConfig(ctx, nil)
}

// NewWazeroEngineWithConfig creates a new engine with custom configuration
func NewWazeroEngineWithConfig(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()

	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.CloseOnContextDone {
			runtimeCfg = runtimeCfg.WithCloseOnContextDone(true)
		}
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	return &WazeroEngine{runtime: runtime}, nil
}

// Runtime returns the underlying wazero runtime, for host module builders.
func (e *WazeroEngine) Runtime() wazero.Runtime {
	return e.runtime
}

// LoadModule compiles a core WebAssembly binary.
func (e *WazeroEngine) LoadModule(ctx context.Context, wasmBytes []byte) (*WazeroModule, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("compile failed: %w", err)
	}

	m := &WazeroModule{
		engine:   e,
		compiled: compiled,
	}
	debugf("module compiled: %d imports, %d exports", len(m.ImportNames()), len(m.ExportNames()))
	return m, nil
}

func (e *WazeroEngine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// InitWASI instantiates WASI preview1 in this engine's runtime.
// Safe for concurrent calls from multiple modules sharing the same engine.
func (e *WazeroEngine) InitWASI(ctx context.Context) error {
	if e.wasiInitDone.Load() {
		return nil
	}

	e.wasiInitMu.Lock()
	defer e.wasiInitMu.Unlock()

	if e.wasiInitDone.Load() {
		return nil
	}

	if e.runtime.Module(WASIModuleName) != nil {
		e.wasiInitDone.Store(true)
		return nil
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, e.runtime); err != nil {
		if e.runtime.Module(WASIModuleName) == nil {
			return fmt.Errorf("instantiate WASI: %w", err)
		}
	}

	e.wasiInitDone.Store(true)
	Logger().Debug("WASI preview1 instantiated")
	return nil
}

// WazeroModule is a compiled WASM module
type WazeroModule struct {
	engine   *WazeroEngine
	compiled wazero.CompiledModule
}

// InstanceConfig holds configuration for module instantiation
type InstanceConfig struct {
	// Name registers the instance under this module name. Empty instantiates
	// anonymously, which allows parallel instances of one module.
	Name string

	// StartFunctions run after instantiation. Nil runs "_initialize" when
	// the module exports it.
	StartFunctions []string

	Args   []string
	Stdout io.Writer
	Stderr io.Writer
}

// Compiled returns the wazero compiled module.
func (m *WazeroModule) Compiled() wazero.CompiledModule {
	return m.compiled
}

// ImportNames returns "module.name" for every imported function, sorted.
func (m *WazeroModule) ImportNames() []string {
	defs := m.compiled.ImportedFunctions()
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		module, name, _ := def.Import()
		names = append(names, module+"."+name)
	}
	sort.Strings(names)
	return names
}

// ImportsModule reports whether any function is imported from module.
func (m *WazeroModule) ImportsModule(module string) bool {
	for _, def := range m.compiled.ImportedFunctions() {
		if mod, _, _ := def.Import(); mod == module {
			return true
		}
	}
	return false
}

// ExportNames returns the exported function names, sorted.
func (m *WazeroModule) ExportNames() []string {
	defs := m.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *WazeroModule) Instantiate(ctx context.Context) (*WazeroInstance, error) {
	return m.InstantiateWithConfig(ctx, nil)
}

// InstantiateWithConfig creates an instance with custom configuration
func (m *WazeroModule) InstantiateWithConfig(ctx context.Context, cfg *InstanceConfig) (*WazeroInstance, error) {
	if cfg == nil {
		cfg = &InstanceConfig{}
	}

	modConfig := wazero.NewModuleConfig().WithName(cfg.Name)
	if cfg.StartFunctions != nil {
		modConfig = modConfig.WithStartFunctions(cfg.StartFunctions...)
	} else {
		modConfig = modConfig.WithStartFunctions("_initialize")
	}
	if len(cfg.Args) > 0 {
		modConfig = modConfig.WithArgs(cfg.Args...)
	}
	if cfg.Stdout != nil {
		modConfig = modConfig.WithStdout(cfg.Stdout)
	}
	if cfg.Stderr != nil {
		modConfig = modConfig.WithStderr(cfg.Stderr)
	}

	instance, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, modConfig)
	if err != nil {
		return nil, fmt.Errorf("instantiate failed: %w", err)
	}

	wazInst := &WazeroInstance{
		instance:  instance,
		funcCache: make(map[string]api.Function),
	}
	if mem := ExportedMemory(instance); mem != nil {
		wazInst.memory = NewWazeroMemory(mem)
	}

	Logger().Debug("module instantiated",
		zap.String("name", instance.Name()),
		zap.Bool("memory", wazInst.memory != nil))
	return wazInst, nil
}

// Close releases the compiled module.
func (m *WazeroModule) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// WazeroInstance is an instantiated guest.
// It is NOT thread-safe and should be used by a single goroutine.
type WazeroInstance struct {
	instance  api.Module
	memory    *WazeroMemory
	funcCache map[string]api.Function
	cacheMu   sync.RWMutex
}

// Name returns the module name the instance was registered under.
func (i *WazeroInstance) Name() string {
	return i.instance.Name()
}

// Module returns the raw wazero module.
func (i *WazeroInstance) Module() api.Module {
	return i.instance
}

// Memory returns the exported linear memory, or nil if the guest has none.
func (i *WazeroInstance) Memory() *WazeroMemory {
	return i.memory
}

// MemorySize returns the current linear memory size in bytes, or 0 if no memory.
func (i *WazeroInstance) MemorySize() uint32 {
	if i.memory == nil {
		return 0
	}
	return i.memory.Size()
}

// GetExportedFunction returns an exported function by name, or nil.
func (i *WazeroInstance) GetExportedFunction(name string) api.Function {
	i.cacheMu.RLock()
	fn, ok := i.funcCache[name]
	i.cacheMu.RUnlock()
	if ok {
		return fn
	}

	fn = i.instance.ExportedFunction(name)
	if fn == nil {
		return nil
	}

	i.cacheMu.Lock()
	i.funcCache[name] = fn
	i.cacheMu.Unlock()
	return fn
}

// Call invokes an exported function with raw core-wasm values.
func (i *WazeroInstance) Call(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	if i.instance == nil {
		return nil, fmt.Errorf("instance closed")
	}
	fn := i.GetExportedFunction(name)
	if fn == nil {
		return nil, fmt.Errorf("function %q not exported", name)
	}
	if want := len(fn.Definition().ParamTypes()); want != len(args) {
		return nil, fmt.Errorf("function %q takes %d params, got %d", name, want, len(args))
	}
	return fn.Call(ctx, args...)
}

func (i *WazeroInstance) Close(ctx context.Context) error {
	if i.instance == nil {
		return nil
	}
	err := i.instance.Close(ctx)
	i.instance = nil
	i.funcCache = nil
	i.memory = nil
	return err
}
