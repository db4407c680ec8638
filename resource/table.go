package resource

import (
	"sync"

	"go.uber.org/multierr"
)

// Table owns resource values by handle and notifies observers of their
// lifecycle. It is safe for concurrent use.
type Table struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates a new table with a LocalBackend.
func NewTable() *Table {
	return &Table{
		backend: NewLocalBackend(),
	}
}

// Insert adds a value and returns its handle.
func (t *Table) Insert(typeID uint32, value Closer) (Handle, error) {
	handle, err := t.backend.Create(typeID, value)
	if err != nil {
		return Invalid, err
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return handle, nil
}

// Acquire resolves a handle of the given type and holds its guard until
// release is called. Calls on the same handle are serialized.
func (t *Table) Acquire(handle Handle, typeID uint32) (value Closer, release func(), err error) {
	return t.backend.Lock(handle, typeID)
}

// Contains reports whether handle refers to a live resource of any type.
func (t *Table) Contains(handle Handle) bool {
	_, ok := t.backend.TypeID(handle)
	return ok
}

// Remove waits for in-flight calls on handle, invalidates it and closes the
// value. A failing Close is reported as *CloseError; the handle is released
// either way.
func (t *Table) Remove(handle Handle, typeID uint32) (Closer, error) {
	value, err := t.backend.Drop(handle, typeID)
	if err != nil {
		return nil, err
	}

	var closeErr error
	if err := value.Close(); err != nil {
		closeErr = &CloseError{Handle: handle, Err: err}
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return value, closeErr
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of active resources.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Each iterates over all active resources.
func (t *Table) Each(fn func(Handle, uint32, Closer) bool) {
	t.backend.Each(fn)
}

// Clear removes all resources and returns the combined Close errors.
func (t *Table) Clear() error {
	type live struct {
		handle Handle
		typeID uint32
	}

	// Collect handles first to avoid holding the lock during Remove
	var all []live
	t.backend.Each(func(h Handle, typeID uint32, _ Closer) bool {
		all = append(all, live{h, typeID})
		return true
	})

	var errs error
	for _, l := range all {
		_, err := t.Remove(l.handle, l.typeID)
		switch {
		case err == nil:
		case IsHandleError(err):
			// removed concurrently
		default:
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Close stops accepting new resources and removes every live one.
func (t *Table) Close() error {
	if err := t.backend.Close(); err != nil {
		return err
	}
	return t.Clear()
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
