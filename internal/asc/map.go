package asc

import "datafast-runtime/internal/model"

// AscTypedMapEntry is the phantom sandbox type tag for one {key, value}
// pair of a TypedMap.
type AscTypedMapEntry struct{}

// AscTypedMap is the phantom sandbox type tag for TypedMap<string,Value>,
// the wire form of an Entity's field set (spec.md §3 "Typed map"): an
// ordered sequence of entries, looked up linearly, duplicate keys
// preserving insertion order.
type AscTypedMap = AscArray[AscTypedMapEntry]

// entryConverter implements Converter[model.Field, AscTypedMapEntry].
type entryConverter struct{}

const typedMapEntrySize = 8 // {key ptr u32, value ptr u32}

func (entryConverter) ToAsc(h *Host, f model.Field) (SandboxPtr[AscTypedMapEntry], error) {
	keyPtr, err := stringConv.ToAsc(h, f.Name)
	if err != nil {
		return 0, err
	}
	valPtr, err := ValueConverter{}.ToAsc(h, f.Value)
	if err != nil {
		return 0, err
	}

	ptr, err := h.allocRaw(typedMapEntrySize, TypeTypedMapEntry)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, typedMapEntrySize)
	putU32LE(buf[0:4], keyPtr.Offset())
	putU32LE(buf[4:8], valPtr.Offset())
	if err := h.Mem.WriteAt(ptr, buf); err != nil {
		return 0, err
	}
	return SandboxPtr[AscTypedMapEntry](ptr), nil
}

func (entryConverter) FromAsc(h *Host, ptr SandboxPtr[AscTypedMapEntry], depth int) (model.Field, error) {
	if err := checkDepth(depth); err != nil {
		return model.Field{}, err
	}
	buf, err := h.Mem.ReadAt(ptr.Offset(), typedMapEntrySize)
	if err != nil {
		return model.Field{}, err
	}
	keyPtr := SandboxPtr[AscString](getU32LE(buf[0:4]))
	valPtr := SandboxPtr[AscValueEnum](getU32LE(buf[4:8]))

	name, err := stringConv.FromAsc(h, keyPtr, depth+1)
	if err != nil {
		return model.Field{}, err
	}
	val, err := ValueConverter{}.FromAsc(h, valPtr, depth+1)
	if err != nil {
		return model.Field{}, err
	}
	return model.Field{Name: name, Value: val}, nil
}

// EntityConverter implements Converter[model.Entity, AscTypedMap],
// marshaling only the entity's Fields — Type/ID are established by the
// dispatcher's call context, matching the per-invocation handler argument
// shape rather than a self-describing object.
type EntityConverter struct{}

var fieldsConv = ArrayConverter[model.Field, AscTypedMapEntry]{
	Elem:    entryConverter{},
	ElemTag: TypeTypedMapEntry,
	SelfTag: TypedMap,
}

func (EntityConverter) ToAsc(h *Host, e model.Entity) (SandboxPtr[AscTypedMap], error) {
	return fieldsConv.ToAsc(h, e.Fields)
}

func (EntityConverter) FromAsc(h *Host, ptr SandboxPtr[AscTypedMap], depth int) (model.Entity, error) {
	fields, err := fieldsConv.FromAsc(h, ptr, depth)
	if err != nil {
		return model.Entity{}, err
	}
	e := model.Entity{Fields: fields}
	if id, ok := e.Get("id"); ok {
		e.ID = id.Str
	}
	return e, nil
}
