package sandbox

import (
	"github.com/wasmerio/wasmer-go/wasmer"

	"datafast-runtime/internal/asc"
)

// exportAllocator calls the guest's exported allocator function — named
// "memory.allocate" on layout v0.0.4 or "allocate" on v0.0.5 (spec.md
// §4.1, resolved by asc.Host.AllocatorExportName).
type exportAllocator struct {
	fn *wasmer.Function
}

func (a *exportAllocator) Allocate(n uint32) (uint32, error) {
	ret, err := a.fn.Call(int32(n))
	if err != nil {
		return 0, asc.ErrSizeNotFit{Requested: n}
	}
	ptr, ok := ret.(int32)
	if !ok || ptr == 0 {
		return 0, asc.ErrSizeNotFit{Requested: n}
	}
	return uint32(ptr), nil
}

// exportTypeIDs calls the guest's exported id_of_type(tag) -> runtime_id.
type exportTypeIDs struct {
	fn *wasmer.Function
}

func (t *exportTypeIDs) IDOfType(tag asc.TypeTag) (uint32, error) {
	ret, err := t.fn.Call(int32(tag))
	if err != nil {
		return 0, err
	}
	id, _ := ret.(int32)
	return uint32(id), nil
}
