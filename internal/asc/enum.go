package asc

import (
	"math/big"

	"datafast-runtime/internal/model"
)

// AscValueEnum is the phantom sandbox type tag for the tagged-enum wire
// form of model.Value (spec.md §3 "Tagged enum": {discriminant: u32,
// payload: SandboxPtr<T> | 64-bit inlined scalar}).
type AscValueEnum struct{}

const enumHeaderSize = 12 // {discriminant u32, payload u64}

// ValueConverter implements Converter[model.Value, AscValueEnum]. Each
// declared discriminant maps to model.ValueKind 1:1 (their numeric values
// already match, see model.ValueKind) — unknown discriminants are a hard
// error per spec.md §3's enum invariant.
type ValueConverter struct{}

var (
	stringConv = StringConverter{}
	bytesConv  = ByteArrayConverter{}
	bigIntConv = BigIntConverter{}
	listConv   = ArrayConverter[model.Value, AscValueEnum]{
		Elem:    ValueConverter{},
		ElemTag: TypeArrayValue,
		SelfTag: TypeArrayValue,
	}
)

func (ValueConverter) ToAsc(h *Host, v model.Value) (SandboxPtr[AscValueEnum], error) {
	hdr := make([]byte, enumHeaderSize)
	putU32LE(hdr[0:4], uint32(v.Kind))

	switch v.Kind {
	case model.ValueString:
		p, err := stringConv.ToAsc(h, v.Str)
		if err != nil {
			return 0, err
		}
		putU64LE(hdr[4:12], uint64(p.Offset()))
	case model.ValueInt32:
		putU64LE(hdr[4:12], uint64(uint32(v.I32)))
	case model.ValueInt64:
		putU64LE(hdr[4:12], uint64(v.I64))
	case model.ValueBool:
		b := uint64(0)
		if v.Bool {
			b = 1
		}
		putU64LE(hdr[4:12], b)
	case model.ValueNull:
		// payload left zero
	case model.ValueBytes:
		p, err := bytesConv.ToAsc(h, v.Bytes)
		if err != nil {
			return 0, err
		}
		putU64LE(hdr[4:12], uint64(p.Offset()))
	case model.ValueBigInt:
		p, err := bigIntConv.ToAsc(h, v.BigInt)
		if err != nil {
			return 0, err
		}
		putU64LE(hdr[4:12], uint64(p.Offset()))
	case model.ValueBigDecimal:
		// A BigDecimal is carried as its string form for the wire, mirroring
		// how the BigInt path already reuses the byte-array machinery; a
		// fuller fixed-point encoding is unnecessary for this bridge.
		p, err := stringConv.ToAsc(h, v.Decimal.Text('g', -1))
		if err != nil {
			return 0, err
		}
		putU64LE(hdr[4:12], uint64(p.Offset()))
	case model.ValueList:
		p, err := listConv.ToAsc(h, v.List)
		if err != nil {
			return 0, err
		}
		putU64LE(hdr[4:12], uint64(p.Offset()))
	default:
		return 0, ErrUnknownDiscriminant{Enum: "Value", Discriminant: uint32(v.Kind)}
	}

	ptr, err := h.allocRaw(enumHeaderSize, TypeValue)
	if err != nil {
		return 0, err
	}
	if err := h.Mem.WriteAt(ptr, hdr); err != nil {
		return 0, err
	}
	return SandboxPtr[AscValueEnum](ptr), nil
}

func (ValueConverter) FromAsc(h *Host, ptr SandboxPtr[AscValueEnum], depth int) (model.Value, error) {
	if ptr.IsNull() {
		return model.NewNull(), nil
	}
	if err := checkDepth(depth); err != nil {
		return model.Value{}, err
	}
	hdr, err := h.Mem.ReadAt(ptr.Offset(), enumHeaderSize)
	if err != nil {
		return model.Value{}, err
	}
	disc := getU32LE(hdr[0:4])
	payload := getU64LE(hdr[4:12])

	switch model.ValueKind(disc) {
	case model.ValueString:
		s, err := stringConv.FromAsc(h, SandboxPtr[AscString](uint32(payload)), depth+1)
		if err != nil {
			return model.Value{}, err
		}
		return model.NewString(s), nil
	case model.ValueInt32:
		return model.NewInt32(int32(uint32(payload))), nil
	case model.ValueInt64:
		return model.NewInt64(int64(payload)), nil
	case model.ValueBool:
		b := payload != 0
		if payload != 0 && payload != 1 {
			return model.Value{}, ErrIncorrectBool{Byte: byte(payload)}
		}
		return model.NewBool(b), nil
	case model.ValueNull:
		return model.NewNull(), nil
	case model.ValueBytes:
		b, err := bytesConv.FromAsc(h, SandboxPtr[AscTypedArray](uint32(payload)), depth+1)
		if err != nil {
			return model.Value{}, err
		}
		return model.NewBytes(b), nil
	case model.ValueBigInt:
		v, err := bigIntConv.FromAsc(h, SandboxPtr[AscBigInt](uint32(payload)), depth+1)
		if err != nil {
			return model.Value{}, err
		}
		return model.NewBigInt(v), nil
	case model.ValueBigDecimal:
		s, err := stringConv.FromAsc(h, SandboxPtr[AscString](uint32(payload)), depth+1)
		if err != nil {
			return model.Value{}, err
		}
		f, _, err := big.ParseFloat(s, 10, 200, big.ToNearestEven)
		if err != nil {
			return model.Value{}, err
		}
		return model.NewBigDecimal(f), nil
	case model.ValueList:
		items, err := listConv.FromAsc(h, SandboxPtr[AscArray[AscValueEnum]](uint32(payload)), depth+1)
		if err != nil {
			return model.Value{}, err
		}
		return model.NewList(items), nil
	default:
		return model.Value{}, ErrUnknownDiscriminant{Enum: "Value", Discriminant: disc}
	}
}

func putU64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getU64LE(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
