package asc

import "unicode/utf16"

// AscString is the phantom sandbox type tag for SandboxPtr[AscString].
type AscString struct{}

// StringConverter implements Converter[string, AscString] for both layout
// versions. v0.0.4 strings are length-prefixed (a 4-byte byte-length header
// followed by UTF-16LE code units); v0.0.5 strings have no extra prefix —
// the common managed header already carries the byte length as rt_size.
type StringConverter struct{}

func (StringConverter) ToAsc(h *Host, s string) (SandboxPtr[AscString], error) {
	units := utf16.Encode([]rune(s))
	payload := make([]byte, len(units)*2)
	for i, u := range units {
		putU16LE(payload[i*2:], u)
	}

	byteLen, err := checkU32(uint64(len(payload)))
	if err != nil {
		return 0, err
	}

	switch h.Class() {
	case ClassV004:
		n, err := checkU32(uint64(4) + uint64(len(payload)))
		if err != nil {
			return 0, err
		}
		ptr, err := h.allocRaw(n, TypeString)
		if err != nil {
			return 0, err
		}
		lenField := make([]byte, 4)
		putU32LE(lenField, byteLen)
		if err := h.Mem.WriteAt(ptr, lenField); err != nil {
			return 0, err
		}
		if err := h.Mem.WriteAt(ptr+4, payload); err != nil {
			return 0, err
		}
		return SandboxPtr[AscString](ptr), nil
	default: // ClassV005
		ptr, err := h.allocRaw(byteLen, TypeString)
		if err != nil {
			return 0, err
		}
		if err := h.Mem.WriteAt(ptr, payload); err != nil {
			return 0, err
		}
		return SandboxPtr[AscString](ptr), nil
	}
}

func (StringConverter) FromAsc(h *Host, ptr SandboxPtr[AscString], depth int) (string, error) {
	if ptr.IsNull() {
		return "", nil
	}
	if err := checkDepth(depth); err != nil {
		return "", err
	}

	switch h.Class() {
	case ClassV004:
		hdr, err := h.Mem.ReadAt(ptr.Offset(), 4)
		if err != nil {
			return "", err
		}
		byteLen := getU32LE(hdr)
		payload, err := h.Mem.ReadAt(ptr.Offset()+4, byteLen)
		if err != nil {
			return "", err
		}
		return decodeUTF16LE(payload), nil
	default: // ClassV005: byte length lives in the managed header preceding ptr.
		rtSizeField, err := h.Mem.ReadAt(ptr.Offset()-ManagedHeaderSize+12, 4)
		if err != nil {
			return "", err
		}
		byteLen := getU32LE(rtSizeField)
		payload, err := h.Mem.ReadAt(ptr.Offset(), byteLen)
		if err != nil {
			return "", err
		}
		return decodeUTF16LE(payload), nil
	}
}

func putU16LE(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func getU16LE(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func decodeUTF16LE(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = getU16LE(b[i*2:])
	}
	return string(utf16.Decode(units))
}
