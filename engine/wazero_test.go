package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/plasmoverse/opusbridge/transcoder"
)

// addModule exports "memory" (one page) and add(i32, i32) -> i32.
var addModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type: (i32, i32) -> i32
	0x01, 0x07, 0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f,
	// function
	0x03, 0x02, 0x01, 0x00,
	// memory: min 1 page
	0x05, 0x03, 0x01, 0x00, 0x01,
	// export: memory, add
	0x07, 0x10, 0x02,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x03, 'a', 'd', 'd', 0x00, 0x00,
	// code: local.get 0, local.get 1, i32.add
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b,
}

func newEngine(t *testing.T) *WazeroEngine {
	t.Helper()
	ctx := context.Background()
	e, err := NewWazeroEngine(ctx)
	if err != nil {
		t.Fatalf("NewWazeroEngine failed: %v", err)
	}
	t.Cleanup(func() { e.Close(ctx) })
	return e
}

func TestNewWazeroEngineWithConfig(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		cfg  *Config
		name string
	}{
		{nil, "nil config"},
		{&Config{}, "default config"},
		{&Config{MemoryLimitPages: 256}, "16MB limit"},
		{&Config{CloseOnContextDone: true}, "close on context done"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine, err := NewWazeroEngineWithConfig(ctx, tc.cfg)
			if err != nil {
				t.Fatalf("NewWazeroEngineWithConfig failed: %v", err)
			}
			defer engine.Close(ctx)

			if engine.Runtime() == nil {
				t.Error("engine runtime should not be nil")
			}
		})
	}
}

func TestWazeroEngine_LoadModule_Invalid(t *testing.T) {
	e := newEngine(t)
	if _, err := e.LoadModule(context.Background(), []byte("not wasm")); err == nil {
		t.Error("expected compile error")
	}
}

func TestWazeroEngine_InitWASI(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	for i := 0; i < 2; i++ {
		if err := e.InitWASI(ctx); err != nil {
			t.Fatalf("InitWASI #%d failed: %v", i, err)
		}
	}
	if e.Runtime().Module(WASIModuleName) == nil {
		t.Error("WASI module not registered")
	}
}

func TestWazeroModule_Exports(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	mod, err := e.LoadModule(ctx, addModule)
	if err != nil {
		t.Fatalf("LoadModule failed: %v", err)
	}

	exports := mod.ExportNames()
	if len(exports) != 1 || exports[0] != "add" {
		t.Errorf("ExportNames() = %v, want [add]", exports)
	}
	if len(mod.ImportNames()) != 0 {
		t.Errorf("ImportNames() = %v, want none", mod.ImportNames())
	}
	if mod.ImportsModule("opus") {
		t.Error("ImportsModule(opus) = true")
	}
}

func TestWazeroInstance_Call(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	mod, err := e.LoadModule(ctx, addModule)
	if err != nil {
		t.Fatalf("LoadModule failed: %v", err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	defer inst.Close(ctx)

	results, err := inst.Call(ctx, "add", 40, 2)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if len(results) != 1 || uint32(results[0]) != 42 {
		t.Errorf("add(40, 2) = %v, want [42]", results)
	}

	if _, err := inst.Call(ctx, "missing"); err == nil {
		t.Error("expected error for missing export")
	}
	if _, err := inst.Call(ctx, "add", 1); err == nil {
		t.Error("expected error for wrong arity")
	}
}

func TestWazeroInstance_ParallelAnonymous(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	mod, err := e.LoadModule(ctx, addModule)
	if err != nil {
		t.Fatalf("LoadModule failed: %v", err)
	}
	a, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatalf("first Instantiate failed: %v", err)
	}
	defer a.Close(ctx)
	b, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatalf("second Instantiate failed: %v", err)
	}
	defer b.Close(ctx)
}

func TestWazeroInstance_Close(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	mod, _ := e.LoadModule(ctx, addModule)
	inst, err := mod.InstantiateWithConfig(ctx, &InstanceConfig{Name: "guest"})
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	if inst.Name() != "guest" {
		t.Errorf("Name() = %q, want guest", inst.Name())
	}

	if err := inst.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := inst.Close(ctx); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if _, err := inst.Call(ctx, "add", 1, 2); err == nil {
		t.Error("expected error after close")
	}
	if inst.MemorySize() != 0 {
		t.Error("closed instance should report no memory")
	}
}

func TestWazeroMemory(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	mod, _ := e.LoadModule(ctx, addModule)
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	defer inst.Close(ctx)

	mem := inst.Memory()
	if mem == nil {
		t.Fatal("expected exported memory")
	}
	if mem.Size() != 65536 {
		t.Errorf("Size() = %d, want 65536", mem.Size())
	}

	if err := mem.WriteU64(16, 0x0102030405060708); err != nil {
		t.Fatalf("WriteU64 failed: %v", err)
	}
	v, err := mem.ReadU64(16)
	if err != nil || v != 0x0102030405060708 {
		t.Errorf("ReadU64 = %#x, %v", v, err)
	}

	if err := mem.Write(65530, make([]byte, 8)); err == nil {
		t.Error("expected out of bounds write error")
	}
	if _, err := mem.Read(65535, 2); err == nil {
		t.Error("expected out of bounds read error")
	}
	if err := mem.WriteU32(65534, 1); err == nil {
		t.Error("expected out of bounds WriteU32 error")
	}

	// through the transcoder region checks
	n, err := transcoder.WriteSamples(mem, 64, 4, []int16{1, -1, 300})
	if err != nil || n != 3 {
		t.Fatalf("WriteSamples = %d, %v", n, err)
	}
	got, err := transcoder.ReadSamples(mem, 64, 3)
	if err != nil {
		t.Fatalf("ReadSamples failed: %v", err)
	}
	if got[0] != 1 || got[1] != -1 || got[2] != 300 {
		t.Errorf("ReadSamples = %v", got)
	}

	_, err = transcoder.ReadBytes(mem, 65500, 100)
	if !errors.Is(err, transcoder.ErrOutOfBounds) {
		t.Errorf("ReadBytes past end: %v, want ErrOutOfBounds", err)
	}
}

func TestNewWazeroMemory_Nil(t *testing.T) {
	if NewWazeroMemory(nil) != nil {
		t.Error("NewWazeroMemory(nil) should be nil")
	}
}

func TestWazeroInstance_NoMemory(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	mod, err := e.LoadModule(ctx, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00})
	if err != nil {
		t.Fatalf("LoadModule failed: %v", err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	defer inst.Close(ctx)

	if inst.Memory() != nil {
		t.Error("Memory() should be nil for a module without memory")
	}
	if ExportedMemory(inst.Module()) != nil {
		t.Error("ExportedMemory should be nil for a module without memory")
	}
}
