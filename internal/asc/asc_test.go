package asc

import (
	"math/big"
	"testing"

	"datafast-runtime/internal/model"
)

type fakeTypeIDs struct{}

func (fakeTypeIDs) IDOfType(tag TypeTag) (uint32, error) { return uint32(tag) + 1000, nil }

func newTestHost(t *testing.T, version Version) *Host {
	t.Helper()
	mem := NewSliceMemory(0)
	return &Host{
		Mem:     mem,
		Alloc:   NewBumpAllocator(mem),
		Types:   NewTagTable(fakeTypeIDs{}),
		Version: version,
	}
}

func TestStringRoundTripBothLayouts(t *testing.T) {
	for _, v := range []Version{V004, V005} {
		h := newTestHost(t, v)
		ptr, err := AscNew[string, AscString](h, StringConverter{}, "hello, subgraph")
		if err != nil {
			t.Fatalf("%s: ToAsc: %v", v, err)
		}
		got, err := AscGet[string, AscString](h, StringConverter{}, ptr, 0)
		if err != nil {
			t.Fatalf("%s: FromAsc: %v", v, err)
		}
		if got != "hello, subgraph" {
			t.Fatalf("%s: got %q", v, got)
		}
	}
}

func TestNullStringIsEmpty(t *testing.T) {
	h := newTestHost(t, V005)
	got, err := AscGet[string, AscString](h, StringConverter{}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Fatalf("expected empty string for null ptr, got %q", got)
	}
}

func TestByteArrayRoundTrip(t *testing.T) {
	for _, v := range []Version{V004, V005} {
		h := newTestHost(t, v)
		data := []byte{1, 2, 3, 4, 250}
		ptr, err := ByteArrayConverter{}.ToAsc(h, data)
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		got, err := ByteArrayConverter{}.FromAsc(h, ptr, 0)
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		if string(got) != string(data) {
			t.Fatalf("%s: got %x want %x", v, got, data)
		}
	}
}

// The second typed array's buffer lies after the first one's, so a v0.0.4
// byte_offset read as an absolute address would point into the wrong
// object, catching the byte_offset/bufPtr confusion ToAsc/FromAsc must agree
// on (see ByteArrayConverter.FromAsc).
func TestByteArrayRoundTripSecondAllocation(t *testing.T) {
	for _, v := range []Version{V004, V005} {
		h := newTestHost(t, v)
		first := []byte{0xAA, 0xBB}
		if _, err := ByteArrayConverter{}.ToAsc(h, first); err != nil {
			t.Fatalf("%s: first ToAsc: %v", v, err)
		}
		data := []byte{9, 8, 7, 6, 5, 4}
		ptr, err := ByteArrayConverter{}.ToAsc(h, data)
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		got, err := ByteArrayConverter{}.FromAsc(h, ptr, 0)
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		if string(got) != string(data) {
			t.Fatalf("%s: got %x want %x", v, got, data)
		}
	}
}

func TestBigIntRoundTrip(t *testing.T) {
	h := newTestHost(t, V005)
	v := big.NewInt(-98765432)
	ptr, err := BigIntConverter{}.ToAsc(h, v)
	if err != nil {
		t.Fatal(err)
	}
	got, err := BigIntConverter{}.FromAsc(h, ptr, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.Cmp(v) != 0 {
		t.Fatalf("got %s want %s", got, v)
	}
}

func TestStringArrayRoundTrip(t *testing.T) {
	h := newTestHost(t, V005)
	arr := ArrayConverter[string, AscString]{Elem: StringConverter{}, ElemTag: TypeArrayString, SelfTag: TypeArrayString}
	in := []string{"alpha", "beta", "gamma"}
	ptr, err := arr.ToAsc(h, in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := arr.FromAsc(h, ptr, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d items, want %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("index %d: got %q want %q", i, out[i], in[i])
		}
	}
}

func TestValueEnumRoundTrip(t *testing.T) {
	h := newTestHost(t, V005)
	cases := []model.Value{
		model.NewString("alice"),
		model.NewInt32(42),
		model.NewInt64(-99999999999),
		model.NewBool(true),
		model.NewBool(false),
		model.NewNull(),
		model.NewBytes([]byte{0xde, 0xad, 0xbe, 0xef}),
		model.NewBigInt(big.NewInt(123456789)),
		model.NewList([]model.Value{model.NewInt32(1), model.NewString("x")}),
	}
	for _, c := range cases {
		ptr, err := ValueConverter{}.ToAsc(h, c)
		if err != nil {
			t.Fatalf("%v: ToAsc: %v", c.Kind, err)
		}
		got, err := ValueConverter{}.FromAsc(h, ptr, 0)
		if err != nil {
			t.Fatalf("%v: FromAsc: %v", c.Kind, err)
		}
		if got.Kind != c.Kind {
			t.Fatalf("kind mismatch: got %v want %v", got.Kind, c.Kind)
		}
	}
}

// Scenario 3 from spec.md §8: a byte 0x02 read as a bool fails.
func TestBooleanStrictness(t *testing.T) {
	h := newTestHost(t, V005)
	v := model.Value{Kind: model.ValueBool, Bool: true}
	ptr, err := ValueConverter{}.ToAsc(h, v)
	if err != nil {
		t.Fatal(err)
	}
	// Corrupt the inlined payload byte to an invalid boolean value.
	if err := h.Mem.WriteAt(ptr.Offset()+4, []byte{2, 0, 0, 0, 0, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	_, err = ValueConverter{}.FromAsc(h, ptr, 0)
	var wantErr ErrIncorrectBool
	if err == nil {
		t.Fatal("expected ErrIncorrectBool")
	}
	if !asErr(err, &wantErr) {
		t.Fatalf("got %v, want ErrIncorrectBool", err)
	}
	if wantErr.Byte != 2 {
		t.Fatalf("got byte %d, want 2", wantErr.Byte)
	}
}

func asErr(err error, target *ErrIncorrectBool) bool {
	e, ok := err.(ErrIncorrectBool)
	if ok {
		*target = e
	}
	return ok
}

// Scenario 6 from spec.md §8: an undeclared enum discriminant is a hard
// marshalling error.
func TestUnknownDiscriminant(t *testing.T) {
	h := newTestHost(t, V005)
	ptr, err := h.allocRaw(enumHeaderSize, TypeValue)
	if err != nil {
		t.Fatal(err)
	}
	hdr := make([]byte, enumHeaderSize)
	putU32LE(hdr[0:4], 999) // no such discriminant
	if err := h.Mem.WriteAt(ptr, hdr); err != nil {
		t.Fatal(err)
	}
	_, err = ValueConverter{}.FromAsc(h, SandboxPtr[AscValueEnum](ptr), 0)
	if err == nil {
		t.Fatal("expected error for unknown discriminant")
	}
}

func TestRecursionBound(t *testing.T) {
	h := newTestHost(t, V005)
	_, err := AscGet[string, AscString](h, StringConverter{}, 4, MaxRecursionDepth+1)
	if err == nil {
		t.Fatal("expected ErrMaxRecursion")
	}
}

func TestOutOfBoundsRead(t *testing.T) {
	h := newTestHost(t, V005)
	_, err := h.Mem.ReadAt(10_000_000, 8)
	if err == nil {
		t.Fatal("expected out-of-bounds error")
	}
}

func TestEntityRoundTrip(t *testing.T) {
	h := newTestHost(t, V005)
	e := model.Entity{Type: "User", ID: "0xA", Fields: []model.Field{
		{Name: "id", Value: model.NewString("0xA")},
		{Name: "name", Value: model.NewString("alice")},
		{Name: "age", Value: model.NewInt32(30)},
	}}
	ptr, err := EntityConverter{}.ToAsc(h, e)
	if err != nil {
		t.Fatal(err)
	}
	got, err := EntityConverter{}.FromAsc(h, ptr, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "0xA" || len(got.Fields) != 3 {
		t.Fatalf("got %+v", got)
	}
}

// Scenario from spec.md §4.1 "Numeric overflow": writing a host value past a
// sandbox field's bit width fails with ErrOverflow rather than truncating.
func TestCheckU32Overflow(t *testing.T) {
	if _, err := checkU32(1 << 32); err == nil {
		t.Fatal("expected ErrOverflow for a value past 32 bits")
	} else if _, ok := err.(ErrOverflow); !ok {
		t.Fatalf("got %T, want ErrOverflow", err)
	}

	n, err := checkU32(0xFFFFFFFF)
	if err != nil {
		t.Fatalf("max u32 value should not overflow: %v", err)
	}
	if n != 0xFFFFFFFF {
		t.Fatalf("got %d, want 0xFFFFFFFF", n)
	}
}

func TestEntityValidateRejectsMissingID(t *testing.T) {
	e := model.Entity{Type: "User", Fields: []model.Field{{Name: "name", Value: model.NewString("alice")}}}
	if err := e.Validate(); err == nil {
		t.Fatal("expected validation error for missing id")
	}
}
