package engine

import (
	"fmt"
	"sort"

	"github.com/tetratelabs/wazero/api"

	"github.com/plasmoverse/opusbridge/transcoder"
)

// WazeroMemory wraps wazero memory to implement transcoder.Memory
type WazeroMemory struct {
	mem api.Memory
}

// ExportedMemory returns the memory mod exports, preferring the one named
// "memory", or nil when it exports none. api.Module.Memory cannot be used
// for this: it returns a non-nil interface holding a nil pointer.
func ExportedMemory(mod api.Module) api.Memory {
	defs := mod.ExportedMemoryDefinitions()
	if len(defs) == 0 {
		return nil
	}
	if _, ok := defs["memory"]; ok {
		return mod.ExportedMemory("memory")
	}
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return mod.ExportedMemory(names[0])
}

// NewWazeroMemory wraps mem. It returns nil for a nil mem.
func NewWazeroMemory(mem api.Memory) *WazeroMemory {
	if mem == nil {
		return nil
	}
	return &WazeroMemory{mem: mem}
}

func (m *WazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *WazeroMemory) Write(offset uint32, data []byte) error {
	ok := m.mem.Write(offset, data)
	if !ok {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (m *WazeroMemory) ReadU64(offset uint32) (uint64, error) {
	val, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds: offset=%d, length=8", offset)
	}
	return val, nil
}

func (m *WazeroMemory) WriteU32(offset uint32, value uint32) error {
	ok := m.mem.WriteUint32Le(offset, value)
	if !ok {
		return fmt.Errorf("write out of bounds: offset=%d, length=4", offset)
	}
	return nil
}

func (m *WazeroMemory) WriteU64(offset uint32, value uint64) error {
	ok := m.mem.WriteUint64Le(offset, value)
	if !ok {
		return fmt.Errorf("write out of bounds: offset=%d, length=8", offset)
	}
	return nil
}

func (m *WazeroMemory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

var _ transcoder.Memory = (*WazeroMemory)(nil)
var _ transcoder.MemorySizer = (*WazeroMemory)(nil)
