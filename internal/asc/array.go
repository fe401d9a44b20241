package asc

// AscArray is the phantom sandbox type tag for SandboxPtr[AscArray[A]],
// i.e. a sandbox Array<T> whose elements are each SandboxPtr[A].
type AscArray[A any] struct{}

const arrayHeaderSize = 8 // {buffer_ptr u32, length u32}

// ArrayConverter implements Converter[[]H, AscArray[A]] on top of a
// Converter[H, A] for the element type, matching spec.md §3's "Array<T>:
// {buffer_ptr, length} on top of a typed-array of same-sized elements" —
// here the "same-sized elements" are always 4-byte pointers into A-tagged
// objects, which covers every array the bridge needs (Array<string>,
// Array<Value>, Array<Bytes> is the one exception handled by
// ByteArrayConverter directly since its elements are raw bytes, not
// pointers).
type ArrayConverter[H any, A any] struct {
	Elem    Converter[H, A]
	ElemTag TypeTag
	SelfTag TypeTag
}

func (c ArrayConverter[H, A]) ToAsc(h *Host, items []H) (SandboxPtr[AscArray[A]], error) {
	ptrs := make([]byte, len(items)*4)
	for i, item := range items {
		p, err := c.Elem.ToAsc(h, item)
		if err != nil {
			return 0, err
		}
		putU32LE(ptrs[i*4:], p.Offset())
	}

	bufN, err := checkU32(uint64(len(ptrs)))
	if err != nil {
		return 0, err
	}
	length, err := checkU32(uint64(len(items)))
	if err != nil {
		return 0, err
	}

	bufPtr, err := h.allocRaw(bufN, c.ElemTag)
	if err != nil {
		return 0, err
	}
	if len(ptrs) > 0 {
		if err := h.Mem.WriteAt(bufPtr, ptrs); err != nil {
			return 0, err
		}
	}

	hdrPtr, err := h.allocRaw(arrayHeaderSize, c.SelfTag)
	if err != nil {
		return 0, err
	}
	hdr := make([]byte, arrayHeaderSize)
	putU32LE(hdr[0:4], bufPtr)
	putU32LE(hdr[4:8], length)
	if err := h.Mem.WriteAt(hdrPtr, hdr); err != nil {
		return 0, err
	}
	return SandboxPtr[AscArray[A]](hdrPtr), nil
}

func (c ArrayConverter[H, A]) FromAsc(h *Host, ptr SandboxPtr[AscArray[A]], depth int) ([]H, error) {
	if ptr.IsNull() {
		return nil, nil
	}
	if err := checkDepth(depth); err != nil {
		return nil, err
	}
	hdr, err := h.Mem.ReadAt(ptr.Offset(), arrayHeaderSize)
	if err != nil {
		return nil, err
	}
	bufPtr := getU32LE(hdr[0:4])
	length := getU32LE(hdr[4:8])

	ptrs, err := h.Mem.ReadAt(bufPtr, length*4)
	if err != nil {
		return nil, err
	}
	out := make([]H, length)
	for i := uint32(0); i < length; i++ {
		elemPtr := SandboxPtr[A](getU32LE(ptrs[i*4:]))
		v, err := c.Elem.FromAsc(h, elemPtr, depth+1)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
