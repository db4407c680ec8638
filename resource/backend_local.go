package resource

import (
	"sync"
)

// LocalBackend is an in-memory resource backend with generation-checked
// handles and a mutex per slot.
type LocalBackend struct {
	entries  []*entry
	freeList []uint32
	mu       sync.RWMutex
	closed   bool
}

// entry fields other than guard are protected by LocalBackend.mu.
// Entries are allocated individually so guards never move.
type entry struct {
	guard  sync.Mutex
	value  Closer
	typeID uint32
	gen    uint32
	valid  bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]*entry, 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

// Create stores a value and returns a handle.
func (b *LocalBackend) Create(typeID uint32, value Closer) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return Invalid, ErrClosed
	}

	if len(b.freeList) > 0 {
		index := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		e := b.entries[index]
		e.value = value
		e.typeID = typeID
		e.valid = true
		return makeHandle(index, e.gen), nil
	}

	if len(b.entries) >= indexMask {
		return Invalid, ErrTableFull
	}

	b.entries = append(b.entries, &entry{
		value:  value,
		typeID: typeID,
		gen:    1,
		valid:  true,
	})
	return makeHandle(uint32(len(b.entries)-1), 1), nil
}

// resolve checks handle against the current slot state. Callers hold b.mu.
func (b *LocalBackend) resolve(handle Handle, typeID uint32) (*entry, error) {
	index, gen, ok := handle.slot()
	if !ok {
		return nil, ErrInvalidHandle
	}
	if int(index) >= len(b.entries) {
		return nil, ErrUnknownHandle
	}
	e := b.entries[index]
	if !e.valid || e.gen != gen {
		return nil, ErrStaleHandle
	}
	if e.typeID != typeID {
		return nil, ErrTypeMismatch
	}
	return e, nil
}

// Lock resolves a handle and holds its slot guard until unlock is called.
// The handle is checked again once the guard is held, so a caller that
// waited behind a Drop sees ErrStaleHandle.
func (b *LocalBackend) Lock(handle Handle, typeID uint32) (Closer, func(), error) {
	b.mu.RLock()
	e, err := b.resolve(handle, typeID)
	b.mu.RUnlock()
	if err != nil {
		return nil, nil, err
	}

	e.guard.Lock()

	b.mu.RLock()
	e2, err := b.resolve(handle, typeID)
	var value Closer
	if err == nil {
		value = e2.value
	}
	b.mu.RUnlock()
	if err != nil {
		e.guard.Unlock()
		return nil, nil, err
	}

	return value, e.guard.Unlock, nil
}

// Drop waits for in-flight holders of the slot guard, invalidates the handle
// and returns the value. The slot is reused with the next generation.
func (b *LocalBackend) Drop(handle Handle, typeID uint32) (Closer, error) {
	value, unlock, err := b.Lock(handle, typeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	index, _, _ := handle.slot()

	b.mu.Lock()
	e := b.entries[index]
	e.valid = false
	e.value = nil
	e.gen = nextGen(e.gen)
	if !b.closed {
		b.freeList = append(b.freeList, index)
	}
	b.mu.Unlock()

	return value, nil
}

// Close stops accepting new resources. Live entries stay resolvable until
// dropped.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.freeList = nil
	return nil
}

// Closed reports whether Close was called.
func (b *LocalBackend) Closed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// TypeID returns the type ID for a live handle.
func (b *LocalBackend) TypeID(handle Handle) (uint32, bool) {
	index, gen, ok := handle.slot()
	if !ok {
		return 0, false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if int(index) >= len(b.entries) {
		return 0, false
	}
	e := b.entries[index]
	if !e.valid || e.gen != gen {
		return 0, false
	}
	return e.typeID, true
}

// Len returns the number of active resources.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, e := range b.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// Each iterates over all active resources. fn must not call back into the
// backend.
func (b *LocalBackend) Each(fn func(Handle, uint32, Closer) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(makeHandle(uint32(i), e.gen), e.typeID, e.value) {
				break
			}
		}
	}
}
