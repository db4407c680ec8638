package transcoder

import (
	"errors"
	"fmt"
)

var (
	ErrNullPointer = errors.New("null pointer with non-zero length")
	ErrOutOfBounds = errors.New("region outside memory")
	ErrCapacity    = errors.New("destination capacity too small")
	ErrOverflow    = errors.New("length overflow")
	ErrCount       = errors.New("produced count exceeds buffer")
)

// Error is a buffer marshaling failure. Nothing was written when it is
// returned.
type Error struct {
	Cause  error
	Op     string
	Offset uint32
	Length uint64
}

func (e *Error) Error() string {
	if e.Length == 0 && e.Offset == 0 {
		return fmt.Sprintf("transcoder: %s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("transcoder: %s %d bytes at %#x: %v", e.Op, e.Length, e.Offset, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func fail(op string, offset uint32, length uint64, cause error) *Error {
	return &Error{Op: op, Offset: offset, Length: length, Cause: cause}
}
