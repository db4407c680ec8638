package resource

import (
	"errors"
	"sync"
	"testing"
)

type testValue struct {
	name   string
	closed int
}

func (v *testValue) Close() error {
	v.closed++
	return nil
}

func TestLocalBackend_Basic(t *testing.T) {
	b := NewLocalBackend()
	v := &testValue{name: "test value"}

	handle, err := b.Create(1, v)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if handle == 0 {
		t.Fatal("Expected non-zero handle")
	}

	got, unlock, err := b.Lock(handle, 1)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	unlock()
	if got != v {
		t.Fatalf("Expected %v, got %v", v, got)
	}

	dropped, err := b.Drop(handle, 1)
	if err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	if dropped != v {
		t.Fatalf("Expected %v, got %v", v, dropped)
	}

	if _, _, err := b.Lock(handle, 1); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("Lock after Drop = %v, want ErrStaleHandle", err)
	}
	if _, err := b.Drop(handle, 1); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("second Drop = %v, want ErrStaleHandle", err)
	}
}

func TestLocalBackend_HandleLayout(t *testing.T) {
	b := NewLocalBackend()

	h, _ := b.Create(1, &testValue{})
	index, gen, ok := h.slot()
	if !ok || index != 0 || gen != 1 {
		t.Fatalf("slot() = %d, %d, %v", index, gen, ok)
	}
	if int64(h) != 1<<32|1 {
		t.Fatalf("handle = %#x, want 0x100000001", int64(h))
	}

	if _, _, ok := Invalid.slot(); ok {
		t.Error("Invalid handle must not resolve")
	}
	if _, _, ok := Handle(-5).slot(); ok {
		t.Error("negative handle must not resolve")
	}
	if _, _, ok := Handle(1 << 32).slot(); ok {
		t.Error("handle with zero index bits must not resolve")
	}
	if _, _, ok := Handle(7).slot(); ok {
		t.Error("handle with zero generation must not resolve")
	}
}

func TestLocalBackend_GenerationReuse(t *testing.T) {
	b := NewLocalBackend()

	old, _ := b.Create(1, &testValue{name: "old"})
	if _, err := b.Drop(old, 1); err != nil {
		t.Fatal(err)
	}

	fresh, _ := b.Create(1, &testValue{name: "new"})
	oldIndex, oldGen, _ := old.slot()
	newIndex, newGen, _ := fresh.slot()
	if oldIndex != newIndex {
		t.Fatalf("slot not reused: %d vs %d", oldIndex, newIndex)
	}
	if newGen != oldGen+1 {
		t.Fatalf("generation = %d, want %d", newGen, oldGen+1)
	}

	if _, _, err := b.Lock(old, 1); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("stale handle resolved: %v", err)
	}
	v, unlock, err := b.Lock(fresh, 1)
	if err != nil {
		t.Fatal(err)
	}
	unlock()
	if v.(*testValue).name != "new" {
		t.Fatalf("got %v", v)
	}
}

func TestLocalBackend_GenerationWrap(t *testing.T) {
	if nextGen(maxGen) != 1 {
		t.Fatalf("nextGen(max) = %d, want 1", nextGen(maxGen))
	}
	if nextGen(1) != 2 {
		t.Fatal("nextGen(1) != 2")
	}
}

func TestLocalBackend_ResolveErrors(t *testing.T) {
	b := NewLocalBackend()
	h, _ := b.Create(1, &testValue{})

	tests := []struct {
		name   string
		handle Handle
		typeID uint32
		want   error
	}{
		{"zero", Invalid, 1, ErrInvalidHandle},
		{"unknown index", makeHandle(40, 1), 1, ErrUnknownHandle},
		{"wrong generation", makeHandle(0, 9), 1, ErrStaleHandle},
		{"wrong type", h, 2, ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := b.Lock(tt.handle, tt.typeID)
			if !errors.Is(err, tt.want) {
				t.Errorf("Lock = %v, want %v", err, tt.want)
			}
			if !IsHandleError(err) {
				t.Errorf("IsHandleError(%v) = false", err)
			}
		})
	}
}

func TestLocalBackend_DropWaitsForGuard(t *testing.T) {
	b := NewLocalBackend()
	h, _ := b.Create(1, &testValue{})

	_, unlock, err := b.Lock(h, 1)
	if err != nil {
		t.Fatal(err)
	}

	dropped := make(chan error, 1)
	go func() {
		_, err := b.Drop(h, 1)
		dropped <- err
	}()

	select {
	case err := <-dropped:
		t.Fatalf("Drop returned while guard held: %v", err)
	default:
	}

	if b.Len() != 1 {
		t.Fatal("entry invalidated while guard held")
	}

	unlock()
	if err := <-dropped; err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	if b.Len() != 0 {
		t.Fatal("entry still live after Drop")
	}
}

func TestLocalBackend_Close(t *testing.T) {
	b := NewLocalBackend()
	h, _ := b.Create(1, &testValue{})

	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if !b.Closed() {
		t.Fatal("Closed() = false")
	}

	if _, err := b.Create(1, &testValue{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Create after Close = %v, want ErrClosed", err)
	}

	// live entries can still be dropped
	if _, err := b.Drop(h, 1); err != nil {
		t.Fatalf("Drop after Close: %v", err)
	}
}

func TestLocalBackend_Concurrent(t *testing.T) {
	b := NewLocalBackend()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h, err := b.Create(1, &testValue{})
				if err != nil {
					t.Errorf("Create failed: %v", err)
					return
				}
				if _, err := b.Drop(h, 1); err != nil {
					t.Errorf("Drop failed: %v", err)
					return
				}
			}
		}()
	}

	wg.Wait()

	if b.Len() != 0 {
		t.Fatalf("Expected Len() == 0, got %d", b.Len())
	}
}

func TestLocalBackend_Each(t *testing.T) {
	b := NewLocalBackend()

	h1, _ := b.Create(1, &testValue{name: "a"})
	h2, _ := b.Create(2, &testValue{name: "b"})
	b.Create(1, &testValue{name: "c"})

	seen := map[Handle]uint32{}
	b.Each(func(h Handle, typeID uint32, _ Closer) bool {
		seen[h] = typeID
		return true
	})
	if len(seen) != 3 || seen[h1] != 1 || seen[h2] != 2 {
		t.Fatalf("Each saw %v", seen)
	}

	count := 0
	b.Each(func(Handle, uint32, Closer) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("Each did not stop early: %d", count)
	}
}
