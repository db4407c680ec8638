// Package resource provides the handle table for native codec sessions.
//
// Handles are opaque int64 values that the caller stores and passes back.
// Handle 0 is reserved as the "no resource" sentinel.
//
// # Handle Table
//
// The Table maps handles to values that implement Closer:
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle
//	handle, err := table.Insert(resource.DecoderSession.ID(), dec)
//
//	// Use the value while holding its guard
//	value, release, err := table.Acquire(handle, resource.DecoderSession.ID())
//	defer release()
//
//	// Remove the value; Close is called exactly once
//	_, err = table.Remove(handle, resource.DecoderSession.ID())
//
// # Generations
//
// Each slot carries a generation that is bumped on removal, and the handle
// encodes it. A handle that outlived its resource fails with ErrStaleHandle
// even after the slot was reused, and a handle of another type fails with
// ErrTypeMismatch.
//
// # Guards
//
// Each slot has a mutex. Acquire holds it until release, and Remove takes it
// before invalidating the slot, so removal waits for in-flight calls and a
// call that waited behind a removal observes it.
//
// # Observers
//
// Register observers to track resource lifecycle events:
//
//	table.Subscribe(observer) // OnResourceEvent(resource.Event)
//
// Table.Close removes every live value. Insert fails with ErrClosed afterwards.
package resource
