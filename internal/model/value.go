// Package model holds the data types shared across the pipeline stages and
// the Asc bridge: blocks, entities and the tagged Value union that flows
// between a handler's store.set calls and the database tiers (spec.md §3).
package model

import "math/big"

// ValueKind discriminates the tagged Value union. The numeric values are
// the enum discriminants the Asc bridge reads/writes on the wire and must
// stay stable (spec.md §3 "Tagged enum").
type ValueKind uint32

const (
	ValueString ValueKind = iota
	ValueInt32
	ValueBigDecimal
	ValueBool
	ValueList
	ValueNull
	ValueBytes
	ValueBigInt
	ValueInt64
)

func (k ValueKind) String() string {
	switch k {
	case ValueString:
		return "String"
	case ValueInt32:
		return "Int32"
	case ValueInt64:
		return "Int64"
	case ValueBigDecimal:
		return "BigDecimal"
	case ValueBool:
		return "Bool"
	case ValueList:
		return "List"
	case ValueNull:
		return "Null"
	case ValueBytes:
		return "Bytes"
	case ValueBigInt:
		return "BigInt"
	default:
		return "Unknown"
	}
}

// Value is the tagged union every Entity field holds.
type Value struct {
	Kind       ValueKind
	Str        string
	I32        int32
	I64        int64
	Decimal    *big.Float
	Bool       bool
	List       []Value
	Bytes      []byte
	BigInt     *big.Int
}

// NewString, NewBool, etc. are small constructors used throughout the
// mapping/database code so callers do not need to set Kind by hand.
func NewString(s string) Value    { return Value{Kind: ValueString, Str: s} }
func NewInt32(i int32) Value      { return Value{Kind: ValueInt32, I32: i} }
func NewInt64(i int64) Value      { return Value{Kind: ValueInt64, I64: i} }
func NewBool(b bool) Value        { return Value{Kind: ValueBool, Bool: b} }
func NewNull() Value              { return Value{Kind: ValueNull} }
func NewBytes(b []byte) Value     { return Value{Kind: ValueBytes, Bytes: b} }
func NewBigInt(v *big.Int) Value  { return Value{Kind: ValueBigInt, BigInt: v} }
func NewList(items []Value) Value { return Value{Kind: ValueList, List: items} }
func NewBigDecimal(f *big.Float) Value {
	return Value{Kind: ValueBigDecimal, Decimal: f}
}

// IsNull reports whether v represents the Null variant.
func (v Value) IsNull() bool { return v.Kind == ValueNull }
