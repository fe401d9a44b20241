// Package asc implements the host/guest object bridge ("Asc" for
// AssemblyScript) described in spec.md §4.1: it marshals host Go values
// into a sandbox instance's linear memory and back, honoring the two
// on-wire layout variants (v0.0.4 and v0.0.5) a compiled mapping module may
// target.
//
// spec.md names four primitives. Their Go equivalents here:
//
//	alloc_obj(value, heap) -> SandboxPtr<T>   ~ Host.allocRaw plus each
//	                                            Converter's ToAsc, which
//	                                            together serialize a value
//	                                            and ask the guest allocator
//	                                            for space.
//	read_ptr(ptr, heap) -> T                  ~ each Converter's FromAsc.
//	asc_new<T,A>(&T, heap) -> SandboxPtr<A>   ~ the generic AscNew function.
//	asc_get<T,A>(ptr, heap, depth) -> T       ~ the generic AscGet function,
//	                                            which also enforces the
//	                                            MaxRecursionDepth guard.
//
// Every marshalable type gets its own file (string.go, typedarray.go,
// array.go, bigint.go, enum.go, map.go) declaring its byte layout per
// layout version, its TypeTag, and its Converter in both directions, per
// spec.md §4.1's "every marshalable host type declares (a) its byte layout
// per layout version, (b) its stable type-id tag, and (c) its conversion
// contract in both directions."
package asc
