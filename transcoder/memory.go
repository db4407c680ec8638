package transcoder

import (
	"encoding/binary"
	"fmt"
)

// Memory represents guest linear memory.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU64(offset uint32) (uint64, error)
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// SliceMemory is a Memory backed by a Go byte slice, little-endian like
// wasm linear memory.
type SliceMemory []byte

func (m SliceMemory) Size() uint32 {
	return uint32(len(m))
}

func (m SliceMemory) inBounds(offset, length uint32) bool {
	return uint64(offset)+uint64(length) <= uint64(len(m))
}

func (m SliceMemory) Read(offset uint32, length uint32) ([]byte, error) {
	if !m.inBounds(offset, length) {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return m[offset : offset+length : offset+length], nil
}

func (m SliceMemory) Write(offset uint32, data []byte) error {
	if !m.inBounds(offset, uint32(len(data))) || uint64(len(data)) > uint64(^uint32(0)) {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	copy(m[offset:], data)
	return nil
}

func (m SliceMemory) ReadU64(offset uint32) (uint64, error) {
	data, err := m.Read(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data), nil
}

func (m SliceMemory) WriteU32(offset uint32, value uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	return m.Write(offset, buf[:])
}

func (m SliceMemory) WriteU64(offset uint32, value uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	return m.Write(offset, buf[:])
}

var _ Memory = SliceMemory(nil)
var _ MemorySizer = SliceMemory(nil)
