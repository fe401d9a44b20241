package bigint

import (
	"math/big"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 255, -255, 12345, -12345, 1 << 40, -(1 << 40)}
	for _, c := range cases {
		v := big.NewInt(c)
		b, err := ToSignedBytesLE(v)
		if err != nil {
			t.Fatalf("ToSignedBytesLE(%d): %v", c, err)
		}
		got := FromSignedBytesLE(b)
		if got.Cmp(v) != 0 {
			t.Fatalf("round trip mismatch for %d: got %s via bytes %x", c, got, b)
		}
	}
}

// Scenario 2 from spec.md §8: -12345 -> [0xC7, 0xCF].
func TestNegative12345Literal(t *testing.T) {
	b, err := ToSignedBytesLE(big.NewInt(-12345))
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0xC7, 0xCF}
	if len(b) != len(want) || b[0] != want[0] || b[1] != want[1] {
		t.Fatalf("got %x, want %x", b, want)
	}
	if got := FromSignedBytesLE(b); got.Int64() != -12345 {
		t.Fatalf("decoded %s, want -12345", got)
	}
}

func TestZeroIsEmpty(t *testing.T) {
	b, err := ToSignedBytesLE(big.NewInt(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 0 {
		t.Fatalf("expected empty slice for zero, got %x", b)
	}
	if got := FromSignedBytesLE(nil); got.Sign() != 0 {
		t.Fatalf("expected zero, got %s", got)
	}
}

func TestTooLarge(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), MaxBits+1)
	if _, err := ToSignedBytesLE(huge); err == nil {
		t.Fatal("expected ErrTooLarge")
	}
}
