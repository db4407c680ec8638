// Package transcoder moves audio buffers across the bridge boundary.
//
// Two directions are covered. Go callers hand over slices, which are copied
// so the codec engine never aliases caller memory, and results are trimmed
// to exactly the count the engine produced:
//
//	in := transcoder.CopyBytes(packet)
//	out, err := transcoder.TruncateSamples(pcm, produced, channels)
//
// Guest callers pass (pointer, length) pairs into their linear memory:
//
//	packet, err := transcoder.ReadBytes(mem, ptr, n)
//	written, err := transcoder.WriteSamples(mem, outPtr, outCap, pcm)
//
// # Memory Layout
//
//	Value      Size  Encoding
//	─────────────────────────────
//	byte       1     raw
//	sample     2     int16 little-endian
//	handle     8     int64 little-endian
//	bitrate    4     int32 little-endian
//
// A null pointer with zero length is the empty sequence. A null pointer
// with a non-zero length, a region past the end of memory, a length that
// overflows and a destination smaller than the data all fail with *Error,
// and in every case nothing is written.
//
// Buffer sizes are frame size times channel count, computed with
// SampleBufferLen which rejects overflow.
package transcoder
