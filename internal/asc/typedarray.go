package asc

// AscTypedArray is the phantom sandbox type tag for a Uint8Array-backed
// typed array (SandboxPtr[AscTypedArray]).
type AscTypedArray struct{}

// ByteArrayConverter implements Converter[[]byte, AscTypedArray]: a typed
// array of bytes, used directly for Entity Bytes values and as the wire
// form BigInt round-trips through (spec.md §3 "Typed array", §4.1 "Big-int
// round-trip").
//
// v0.0.4 header: {buffer_ptr, byte_offset, byte_length} pointing at a
// separately allocated buffer object {byte_length, content[...]}.
// v0.0.5 header: flat {buffer_ptr, data_start, byte_length}; the buffer
// holds raw bytes with no length prefix of its own, its length is instead
// read out-of-band from the buffer's managed header.
type ByteArrayConverter struct{}

const typedArrayHeaderSize = 12 // 3 x u32, both layouts

func (ByteArrayConverter) ToAsc(h *Host, data []byte) (SandboxPtr[AscTypedArray], error) {
	byteLen, err := checkU32(uint64(len(data)))
	if err != nil {
		return 0, err
	}

	switch h.Class() {
	case ClassV004:
		bufN, err := checkU32(uint64(4) + uint64(len(data)))
		if err != nil {
			return 0, err
		}
		bufPtr, err := h.allocRaw(bufN, TypeArrayBuffer)
		if err != nil {
			return 0, err
		}
		lenField := make([]byte, 4)
		putU32LE(lenField, byteLen)
		if err := h.Mem.WriteAt(bufPtr, lenField); err != nil {
			return 0, err
		}
		if err := h.Mem.WriteAt(bufPtr+4, data); err != nil {
			return 0, err
		}

		hdrPtr, err := h.allocRaw(typedArrayHeaderSize, TypeTypedArrayU8)
		if err != nil {
			return 0, err
		}
		hdr := make([]byte, typedArrayHeaderSize)
		putU32LE(hdr[0:4], bufPtr)
		putU32LE(hdr[4:8], 4) // byte_offset: skip the buffer's own length prefix
		putU32LE(hdr[8:12], byteLen)
		if err := h.Mem.WriteAt(hdrPtr, hdr); err != nil {
			return 0, err
		}
		return SandboxPtr[AscTypedArray](hdrPtr), nil

	default: // ClassV005
		bufPtr, err := h.allocRaw(byteLen, TypeArrayBuffer)
		if err != nil {
			return 0, err
		}
		if err := h.Mem.WriteAt(bufPtr, data); err != nil {
			return 0, err
		}

		hdrPtr, err := h.allocRaw(typedArrayHeaderSize, TypeTypedArrayU8)
		if err != nil {
			return 0, err
		}
		hdr := make([]byte, typedArrayHeaderSize)
		putU32LE(hdr[0:4], bufPtr)
		putU32LE(hdr[4:8], bufPtr) // data_start == buffer start, no offset
		putU32LE(hdr[8:12], byteLen)
		if err := h.Mem.WriteAt(hdrPtr, hdr); err != nil {
			return 0, err
		}
		return SandboxPtr[AscTypedArray](hdrPtr), nil
	}
}

func (ByteArrayConverter) FromAsc(h *Host, ptr SandboxPtr[AscTypedArray], depth int) ([]byte, error) {
	if ptr.IsNull() {
		return nil, nil
	}
	if err := checkDepth(depth); err != nil {
		return nil, err
	}
	hdr, err := h.Mem.ReadAt(ptr.Offset(), typedArrayHeaderSize)
	if err != nil {
		return nil, err
	}
	bufPtr := getU32LE(hdr[0:4])
	dataStart := getU32LE(hdr[4:8])
	byteLen := getU32LE(hdr[8:12])
	if h.Class() == ClassV004 {
		// v0.0.4's byte_offset field is relative to the buffer object, not
		// an absolute address (see ToAsc's ClassV004 branch).
		dataStart += bufPtr
	}
	return h.Mem.ReadAt(dataStart, byteLen)
}
