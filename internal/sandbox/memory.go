// Package sandbox owns one long-lived wasmer-go instance per datasource:
// the compiled mapping module, its linear memory, its allocator/id_of_type
// exports, and the handler exports declared in the manifest. It is the
// host-side handle described in spec.md §3 ("guest memory is owned by one
// sandbox instance; freed when the instance is dropped. Host-side handles
// never outlive their sandbox").
package sandbox

import (
	"github.com/wasmerio/wasmer-go/wasmer"

	"datafast-runtime/internal/asc"
)

// wasmMemory adapts a *wasmer.Memory to asc.Memory, applying the
// bounds-checked dereference invariant spec.md §3 requires of every
// SandboxPtr access.
type wasmMemory struct {
	mem *wasmer.Memory
}

func (m *wasmMemory) Size() uint32 {
	return uint32(len(m.mem.Data()))
}

func (m *wasmMemory) ReadAt(offset, length uint32) ([]byte, error) {
	data := m.mem.Data()
	if uint64(offset)+uint64(length) > uint64(len(data)) {
		return nil, asc.ErrOutOfBounds{Offset: offset, Length: length, MemSize: uint32(len(data))}
	}
	out := make([]byte, length)
	copy(out, data[offset:offset+length])
	return out, nil
}

func (m *wasmMemory) WriteAt(offset uint32, payload []byte) error {
	data := m.mem.Data()
	if uint64(offset)+uint64(len(payload)) > uint64(len(data)) {
		return asc.ErrOutOfBounds{Offset: offset, Length: uint32(len(payload)), MemSize: uint32(len(data))}
	}
	copy(data[offset:], payload)
	return nil
}
