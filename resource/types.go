package resource

import (
	"errors"
	"fmt"
)

// Handle is an opaque reference to a resource in a table.
//
// The low 32 bits hold the slot index plus one and bits 32..62 hold the
// slot generation. Handle 0 is reserved and always invalid, so callers can
// store it as the "no resource" sentinel.
type Handle int64

// Invalid is the sentinel handle.
const Invalid Handle = 0

const (
	indexMask = 1<<32 - 1
	maxGen    = 1<<31 - 1
)

func makeHandle(index, gen uint32) Handle {
	return Handle(int64(gen)<<32 | int64(index+1))
}

// slot returns the zero-based slot index and generation. ok is false for
// the sentinel and for negative or malformed values.
func (h Handle) slot() (index, gen uint32, ok bool) {
	if h <= 0 {
		return 0, 0, false
	}
	low := uint32(h & indexMask)
	gen = uint32(h >> 32)
	if low == 0 || gen == 0 {
		return 0, 0, false
	}
	return low - 1, gen, true
}

func (h Handle) String() string {
	index, gen, ok := h.slot()
	if !ok {
		return fmt.Sprintf("handle(%d)", int64(h))
	}
	return fmt.Sprintf("handle(%d#%d)", index, gen)
}

func nextGen(gen uint32) uint32 {
	if gen >= maxGen {
		return 1
	}
	return gen + 1
}

var (
	ErrClosed        = errors.New("resource table closed")
	ErrInvalidHandle = errors.New("invalid handle")
	ErrUnknownHandle = errors.New("unknown handle")
	ErrStaleHandle   = errors.New("stale handle")
	ErrTypeMismatch  = errors.New("handle refers to a different resource type")
	ErrTableFull     = errors.New("resource table full")
)

// IsHandleError reports whether err is a handle resolution failure.
func IsHandleError(err error) bool {
	return errors.Is(err, ErrClosed) ||
		errors.Is(err, ErrInvalidHandle) ||
		errors.Is(err, ErrUnknownHandle) ||
		errors.Is(err, ErrStaleHandle) ||
		errors.Is(err, ErrTypeMismatch) ||
		errors.Is(err, ErrTableFull)
}

// Event types for resource lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Event represents a resource lifecycle event.
type Event struct {
	Value  Closer
	Handle Handle
	TypeID uint32
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// Closer is implemented by every value stored in a table. Close is called
// exactly once, when the value's handle is removed.
type Closer interface {
	Close() error
}

// CloseError reports that a value was removed but its Close failed.
// The handle is released either way.
type CloseError struct {
	Handle Handle
	Err    error
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("close %s: %v", e.Handle, e.Err)
}

func (e *CloseError) Unwrap() error {
	return e.Err
}
