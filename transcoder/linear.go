package transcoder

import (
	"encoding/binary"
)

const (
	sampleSize = 2
	handleSize = 8
)

// checkRegion validates a (ptr, length) region before any access.
func checkRegion(op string, mem Memory, ptr uint32, length uint64) error {
	if length == 0 {
		return nil
	}
	if ptr == 0 {
		return fail(op, ptr, length, ErrNullPointer)
	}
	if uint64(ptr)+length > 1<<32 {
		return fail(op, ptr, length, ErrOverflow)
	}
	if sizer, ok := mem.(MemorySizer); ok {
		if uint64(ptr)+length > uint64(sizer.Size()) {
			return fail(op, ptr, length, ErrOutOfBounds)
		}
	}
	return nil
}

// ReadBytes copies length bytes at ptr out of guest memory.
// A null pointer with zero length is the empty sequence.
func ReadBytes(mem Memory, ptr, length uint32) ([]byte, error) {
	if err := checkRegion("read", mem, ptr, uint64(length)); err != nil {
		return nil, err
	}
	if length == 0 {
		return []byte{}, nil
	}
	view, err := mem.Read(ptr, length)
	if err != nil {
		return nil, fail("read", ptr, uint64(length), err)
	}
	return CopyBytes(view), nil
}

// ReadSamples copies count little-endian int16 samples at ptr out of guest
// memory.
func ReadSamples(mem Memory, ptr, count uint32) ([]int16, error) {
	size := uint64(count) * sampleSize
	if err := checkRegion("read", mem, ptr, size); err != nil {
		return nil, err
	}
	if count == 0 {
		return []int16{}, nil
	}
	view, err := mem.Read(ptr, uint32(size))
	if err != nil {
		return nil, fail("read", ptr, size, err)
	}
	samples := make([]int16, count)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(view[i*sampleSize:]))
	}
	return samples, nil
}

// WriteBytes writes data at ptr, failing before any write when data does not
// fit in capacity bytes. It returns the number of bytes written.
func WriteBytes(mem Memory, ptr, capacity uint32, data []byte) (uint32, error) {
	size := uint64(len(data))
	if size > uint64(capacity) {
		return 0, fail("write", ptr, size, ErrCapacity)
	}
	if err := checkRegion("write", mem, ptr, uint64(capacity)); err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, nil
	}
	if err := mem.Write(ptr, data); err != nil {
		return 0, fail("write", ptr, size, err)
	}
	return uint32(size), nil
}

// WriteSamples writes samples little-endian at ptr, failing before any write
// when they do not fit in capacity samples. It returns the number of samples
// written.
func WriteSamples(mem Memory, ptr, capacity uint32, samples []int16) (uint32, error) {
	count := uint64(len(samples))
	if count > uint64(capacity) {
		return 0, fail("write", ptr, count*sampleSize, ErrCapacity)
	}
	if err := checkRegion("write", mem, ptr, uint64(capacity)*sampleSize); err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	buf := make([]byte, count*sampleSize)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*sampleSize:], uint16(s))
	}
	if err := mem.Write(ptr, buf); err != nil {
		return 0, fail("write", ptr, uint64(len(buf)), err)
	}
	return uint32(count), nil
}

// ReadHandle reads the int64 handle field at ptr.
func ReadHandle(mem Memory, ptr uint32) (int64, error) {
	if err := checkRegion("read", mem, ptr, handleSize); err != nil {
		return 0, err
	}
	v, err := mem.ReadU64(ptr)
	if err != nil {
		return 0, fail("read", ptr, handleSize, err)
	}
	return int64(v), nil
}

// WriteHandle stores an int64 handle field at ptr.
func WriteHandle(mem Memory, ptr uint32, h int64) error {
	if err := checkRegion("write", mem, ptr, handleSize); err != nil {
		return err
	}
	if err := mem.WriteU64(ptr, uint64(h)); err != nil {
		return fail("write", ptr, handleSize, err)
	}
	return nil
}

// WriteI32 stores a little-endian int32 at ptr.
func WriteI32(mem Memory, ptr uint32, v int32) error {
	if err := checkRegion("write", mem, ptr, 4); err != nil {
		return err
	}
	if err := mem.WriteU32(ptr, uint32(v)); err != nil {
		return fail("write", ptr, 4, err)
	}
	return nil
}
