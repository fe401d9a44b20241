package asc

import (
	"math/big"

	"datafast-runtime/pkg/bigint"
)

// AscBigInt is the phantom sandbox type tag for a BigInt, which on the wire
// is simply a typed array of signed little-endian bytes (spec.md §4.1
// "Big-int round-trip").
type AscBigInt = AscTypedArray

// BigIntConverter implements Converter[*big.Int, AscBigInt] by delegating
// the byte encoding to ByteArrayConverter and the signed-LE transform to
// pkg/bigint.
type BigIntConverter struct{}

func (BigIntConverter) ToAsc(h *Host, v *big.Int) (SandboxPtr[AscBigInt], error) {
	b, err := bigint.ToSignedBytesLE(v)
	if err != nil {
		return 0, err
	}
	return ByteArrayConverter{}.ToAsc(h, b)
}

func (BigIntConverter) FromAsc(h *Host, ptr SandboxPtr[AscBigInt], depth int) (*big.Int, error) {
	b, err := ByteArrayConverter{}.FromAsc(h, ptr, depth)
	if err != nil {
		return nil, err
	}
	return bigint.FromSignedBytesLE(b), nil
}
