package linker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// FuncDef is a host function definition.
type FuncDef struct {
	Handler     api.GoModuleFunc
	Name        string
	ParamTypes  []api.ValueType
	ResultTypes []api.ValueType
}

// Linker manages host function definitions and the host modules built from
// them. Thread-safe.
type Linker struct {
	runtime      wazero.Runtime
	modules      map[string]map[string]*FuncDef
	mu           sync.RWMutex
	hostModuleMu sync.Mutex
}

// New creates a new Linker with the given wazero runtime.
func New(rt wazero.Runtime) *Linker {
	return &Linker{
		runtime: rt,
		modules: make(map[string]map[string]*FuncDef),
	}
}

// Runtime returns the wazero runtime.
func (l *Linker) Runtime() wazero.Runtime {
	return l.runtime
}

// DefineFunc is a convenience method to define a function at a full path.
// DefineFunc uses path format: "opus#decode"
func (l *Linker) DefineFunc(path string, fn api.GoModuleFunc, params, results []api.ValueType) error {
	module, funcName, err := splitFuncPath(path)
	if err != nil {
		return fmt.Errorf("linker: define func %q: %w", path, err)
	}
	l.define(module, &FuncDef{Name: funcName, Handler: fn, ParamTypes: params, ResultTypes: results})
	return nil
}

func (l *Linker) define(module string, def *FuncDef) {
	l.mu.Lock()
	defer l.mu.Unlock()

	funcs := l.modules[module]
	if funcs == nil {
		funcs = make(map[string]*FuncDef)
		l.modules[module] = funcs
	}
	funcs[def.Name] = def
}

// Resolve looks up a function by full path, or returns nil.
// Resolve uses path format: "opus#decode"
func (l *Linker) Resolve(path string) *FuncDef {
	module, funcName, err := splitFuncPath(path)
	if err != nil {
		return nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modules[module][funcName]
}

// Funcs returns the functions defined for module, sorted by name.
func (l *Linker) Funcs(module string) []*FuncDef {
	l.mu.RLock()
	defer l.mu.RUnlock()

	funcs := make([]*FuncDef, 0, len(l.modules[module]))
	for _, f := range l.modules[module] {
		funcs = append(funcs, f)
	}
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].Name < funcs[j].Name })
	return funcs
}

// splitFuncPath splits "module#funcname" into module and function parts
func splitFuncPath(path string) (module, funcName string, err error) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '#' {
			return path[:i], path[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("linker: invalid function path %q: missing '#' separator", path)
}

// HostModuleBuilder builds host modules for the wazero runtime.
type HostModuleBuilder struct {
	linker     *Linker
	moduleName string
}

// NewHostModule starts building a host module with the given name.
func (l *Linker) NewHostModule(name string) *HostModuleBuilder {
	return &HostModuleBuilder{
		linker:     l,
		moduleName: name,
	}
}

// Func adds a function to the host module builder.
func (b *HostModuleBuilder) Func(name string, fn api.GoModuleFunc, params, results []api.ValueType) *HostModuleBuilder {
	b.linker.define(b.moduleName, &FuncDef{Name: name, Handler: fn, ParamTypes: params, ResultTypes: results})
	return b
}

// Build instantiates the host module into the wazero runtime. A module
// already registered under the name is returned as is.
func (b *HostModuleBuilder) Build(ctx context.Context) (api.Module, error) {
	mod, created, err := b.linker.getOrCreateHostModule(ctx, b.moduleName, func() (api.Module, error) {
		builder := b.linker.runtime.NewHostModuleBuilder(b.moduleName)
		for _, f := range b.linker.Funcs(b.moduleName) {
			builder.NewFunctionBuilder().
				WithGoModuleFunction(f.Handler, f.ParamTypes, f.ResultTypes).
				Export(f.Name)
		}
		return builder.Instantiate(ctx)
	})
	if err != nil {
		return nil, &LinkError{Module: b.moduleName, Reason: "instantiate host module", Cause: err}
	}
	if created {
		Logger().Debug("host module built",
			zap.String("module", b.moduleName),
			zap.Int("funcs", len(b.linker.Funcs(b.moduleName))))
	}
	return mod, nil
}

// getOrCreateHostModule atomically gets or creates a host module.
func (l *Linker) getOrCreateHostModule(ctx context.Context, name string, builder func() (api.Module, error)) (api.Module, bool, error) {
	l.hostModuleMu.Lock()
	defer l.hostModuleMu.Unlock()

	if mod := l.runtime.Module(name); mod != nil {
		return mod, false, nil
	}

	mod, err := builder()
	return mod, mod != nil && err == nil, err
}

// Check verifies that every import of a compiled guest from a module this
// linker defines resolves to a function with a matching signature.
func (l *Linker) Check(compiled wazero.CompiledModule) error {
	for _, def := range compiled.ImportedFunctions() {
		module, name, _ := def.Import()

		l.mu.RLock()
		funcs, known := l.modules[module]
		f := funcs[name]
		l.mu.RUnlock()

		if !known {
			continue
		}
		if f == nil {
			return &LinkError{Module: module, Func: name, Reason: "function not defined"}
		}
		if !sameTypes(f.ParamTypes, def.ParamTypes()) || !sameTypes(f.ResultTypes, def.ResultTypes()) {
			return &LinkError{
				Module: module,
				Func:   name,
				Reason: fmt.Sprintf("signature mismatch: guest %s, host %s",
					signature(def.ParamTypes(), def.ResultTypes()),
					signature(f.ParamTypes, f.ResultTypes)),
			}
		}
	}
	return nil
}

func sameTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func signature(params, results []api.ValueType) string {
	s := "("
	for i, p := range params {
		if i > 0 {
			s += ", "
		}
		s += api.ValueTypeName(p)
	}
	s += ")"
	for i, r := range results {
		if i == 0 {
			s += " -> "
		} else {
			s += ", "
		}
		s += api.ValueTypeName(r)
	}
	return s
}

// Close releases the host modules this linker built. Does not close the
// wazero runtime.
func (l *Linker) Close(ctx context.Context) error {
	l.mu.Lock()
	names := make([]string, 0, len(l.modules))
	for name := range l.modules {
		names = append(names, name)
	}
	l.modules = make(map[string]map[string]*FuncDef)
	l.mu.Unlock()

	l.hostModuleMu.Lock()
	defer l.hostModuleMu.Unlock()

	var firstErr error
	for _, name := range names {
		if mod := l.runtime.Module(name); mod != nil {
			if err := mod.Close(ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
