package asc

// TypeTag is a stable internal identifier for every marshalable type the
// bridge knows how to convert. Tags are numerically stable across host
// versions (spec.md §3, "Asc type-id table"); a guest's runtime type-id for
// the same semantic type is queried via TypeIDs.IDOfType and cached per
// sandbox instance, since the mapping is per-compiled-module, not global.
type TypeTag uint32

const (
	TypeString TypeTag = iota
	TypeArrayBuffer
	TypeTypedArrayU8
	TypeTypedArrayI32
	TypeTypedArrayU32
	TypeTypedArrayI64
	TypeTypedArrayU64
	TypeArrayString
	TypeArrayValue
	TypeArrayBytes
	TypeBigInt
	TypeEntity
	TypeValue
	TypeTypedMapEntry
	TypedMap
	TypeBlock
	TypeBlockPtr
	TypeTransaction
	TypeLog
	TypeEventParam
	TypeAscEnum
)

var typeTagNames = map[TypeTag]string{
	TypeString:        "String",
	TypeArrayBuffer:   "ArrayBuffer",
	TypeTypedArrayU8:  "Uint8Array",
	TypeTypedArrayI32: "Int32Array",
	TypeTypedArrayU32: "Uint32Array",
	TypeTypedArrayI64: "Int64Array",
	TypeTypedArrayU64: "Uint64Array",
	TypeArrayString:   "Array<string>",
	TypeArrayValue:    "Array<Value>",
	TypeArrayBytes:    "Array<Bytes>",
	TypeBigInt:        "BigInt",
	TypeEntity:        "Entity",
	TypeValue:         "Value",
	TypeTypedMapEntry: "TypedMapEntry<string,Value>",
	TypedMap:          "TypedMap<string,Value>",
	TypeBlock:         "Block",
	TypeBlockPtr:      "BlockPtr",
	TypeTransaction:   "Transaction",
	TypeLog:           "Log",
	TypeEventParam:    "EventParam",
	TypeAscEnum:       "AscEnum",
}

// String renders a TypeTag as the AssemblyScript class name it stands in
// for, used in error messages and host-side logging.
func (t TypeTag) String() string {
	if n, ok := typeTagNames[t]; ok {
		return n
	}
	return "unknown"
}

// TagTable caches per-instance (tag -> guest runtime type id) lookups
// performed through TypeIDs.IDOfType, since a guest call is needed for each
// first resolution but the mapping never changes for the lifetime of one
// compiled module instance.
type TagTable struct {
	ids    TypeIDs
	cached map[TypeTag]uint32
}

// NewTagTable wraps a guest's id_of_type export with a cache.
func NewTagTable(ids TypeIDs) *TagTable {
	return &TagTable{ids: ids, cached: make(map[TypeTag]uint32)}
}

// Resolve returns the guest runtime type-id for tag, calling into the guest
// only on first use.
func (t *TagTable) Resolve(tag TypeTag) (uint32, error) {
	if id, ok := t.cached[tag]; ok {
		return id, nil
	}
	id, err := t.ids.IDOfType(tag)
	if err != nil {
		return 0, err
	}
	t.cached[tag] = id
	return id, nil
}
