package asc

// Memory is the host's bounds-checked view of one sandbox instance's linear
// memory. Implementations typically wrap a *wasmer.Memory; internal/sandbox
// provides the production implementation, tests use a plain byte slice.
//
// Every dereference through a SandboxPtr goes through ReadAt/WriteAt so the
// bounds check in §3's invariant ("every SandboxPtr dereference is
// bounds-checked ... fails with SizeNotFit") lives in exactly one place.
type Memory interface {
	// Size returns the current size of linear memory in bytes.
	Size() uint32
	// ReadAt returns a copy of length bytes starting at offset, or
	// ErrOutOfBounds if the range exceeds Size().
	ReadAt(offset, length uint32) ([]byte, error)
	// WriteAt writes data starting at offset, or ErrOutOfBounds if the
	// range exceeds Size().
	WriteAt(offset uint32, data []byte) error
}

// Allocator asks the guest's exported allocator function for n bytes and
// returns the pointer to the start of the allocation. The export name
// differs by layout version (Host.AllocatorExportName resolves it).
type Allocator interface {
	Allocate(n uint32) (uint32, error)
}

// TypeIDs resolves the stable internal tag for a marshalable type to the
// guest runtime's own type-id, via the guest's exported id_of_type.
type TypeIDs interface {
	IDOfType(tag TypeTag) (uint32, error)
}

// sliceMemory is an in-process Memory backed by a growable byte slice, used
// by tests and by any embedder that does not need a real wasmer instance.
type sliceMemory struct {
	data []byte
}

// NewSliceMemory returns a Memory backed by a zero-initialized buffer of the
// given size.
func NewSliceMemory(size uint32) Memory {
	return &sliceMemory{data: make([]byte, size)}
}

func (m *sliceMemory) Size() uint32 { return uint32(len(m.data)) }

func (m *sliceMemory) ReadAt(offset, length uint32) ([]byte, error) {
	if uint64(offset)+uint64(length) > uint64(len(m.data)) {
		return nil, ErrOutOfBounds{Offset: offset, Length: length, MemSize: m.Size()}
	}
	out := make([]byte, length)
	copy(out, m.data[offset:offset+length])
	return out, nil
}

func (m *sliceMemory) WriteAt(offset uint32, data []byte) error {
	end := uint64(offset) + uint64(len(data))
	if end > uint64(len(m.data)) {
		if end > 1<<32 {
			return ErrOutOfBounds{Offset: offset, Length: uint32(len(data)), MemSize: m.Size()}
		}
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[offset:], data)
	return nil
}

// bumpAllocator is a trivial allocator for tests: it never frees and simply
// advances a cursor, growing the backing memory as needed.
type bumpAllocator struct {
	mem    *sliceMemory
	cursor uint32
}

// bumpAllocatorStart is where the first allocation lands: offset 0 is the
// null pointer, so the allocator never hands it out.
const bumpAllocatorStart = 8

// NewBumpAllocator returns an Allocator that carves sequential space out of
// mem, growing it on demand. Intended for tests, not production sandboxes
// (the real guest owns its own allocator export).
func NewBumpAllocator(mem Memory) Allocator {
	sm, ok := mem.(*sliceMemory)
	if !ok {
		panic("asc: NewBumpAllocator requires a *sliceMemory (use NewSliceMemory)")
	}
	return &bumpAllocator{mem: sm, cursor: bumpAllocatorStart}
}

func (a *bumpAllocator) Allocate(n uint32) (uint32, error) {
	ptr := a.cursor
	if err := a.mem.WriteAt(ptr+n, []byte{}); err != nil {
		return 0, ErrSizeNotFit{Requested: n}
	}
	// Ensure backing slice actually covers [ptr, ptr+n).
	if uint64(ptr)+uint64(n) > uint64(len(a.mem.data)) {
		grown := make([]byte, ptr+n)
		copy(grown, a.mem.data)
		a.mem.data = grown
	}
	a.cursor += n
	return ptr, nil
}
