// Package hostfns implements the fixed table of callbacks a sandboxed
// mapping module imports (spec.md §4.2, §6 "Guest ABI (imports)"): logging,
// abort, bigint arithmetic, JSON-to-bigint parsing, store get/set, and
// datasource introspection. The registration idiom — wasmer.NewFunction
// closures capturing a mutable *Context whose memory field is filled in
// only after the instance exists — is grounded directly on
// core/virtual_machine.go's registerHost in the teacher repo.
package hostfns

import (
	"math/big"

	"github.com/wasmerio/wasmer-go/wasmer"

	"datafast-runtime/internal/asc"
)

func i32Type(nargs, nrets int) *wasmer.FunctionType {
	args := make([]wasmer.ValueKind, nargs)
	rets := make([]wasmer.ValueKind, nrets)
	for i := range args {
		args[i] = wasmer.ValueKind(wasmer.I32)
	}
	for i := range rets {
		rets[i] = wasmer.ValueKind(wasmer.I32)
	}
	return wasmer.NewFunctionType(wasmer.NewValueTypes(args...), wasmer.NewValueTypes(rets...))
}

func readString(hc *Context, ptr int32) (string, error) {
	return asc.StringConverter{}.FromAsc(hc.Asc, asc.SandboxPtr[asc.AscString](uint32(ptr)), 0)
}

func writeString(hc *Context, s string) (int32, error) {
	p, err := asc.StringConverter{}.ToAsc(hc.Asc, s)
	if err != nil {
		return 0, err
	}
	return int32(p.Offset()), nil
}

func readBigInt(hc *Context, ptr int32) *big.Int {
	v, err := asc.BigIntConverter{}.FromAsc(hc.Asc, asc.SandboxPtr[asc.AscBigInt](uint32(ptr)), 0)
	if err != nil {
		hc.Err = err
		return big.NewInt(0)
	}
	return v
}

func writeBigInt(hc *Context, v *big.Int) int32 {
	p, err := asc.BigIntConverter{}.ToAsc(hc.Asc, v)
	if err != nil {
		hc.Err = err
		return 0
	}
	return int32(p.Offset())
}

// Register builds the full "env"/"log"/"bigInt"/"json"/"store"/"dataSource"
// import table for one sandbox instance, bound to hc. hc.Asc.Mem must be
// set before any of these functions is actually invoked by the guest (the
// sandbox wires it in right after instantiation, mirroring
// core/virtual_machine.go HeavyVM.Execute's two-phase
// "build imports, then fetch memory, then run").
func Register(store *wasmer.Store, hc *Context) *wasmer.ImportObject {
	imports := wasmer.NewImportObject()

	envAbort := wasmer.NewFunction(store, i32Type(4, 0), func(args []wasmer.Value) ([]wasmer.Value, error) {
		msg, _ := readString(hc, args[0].I32())
		file, _ := readString(hc, args[1].I32())
		line := args[2].I32()
		col := args[3].I32()
		err := ErrAbort{Message: msg, File: file, Line: line, Col: col}
		hc.Err = err
		return nil, err
	})

	logLog := wasmer.NewFunction(store, i32Type(2, 0), func(args []wasmer.Value) ([]wasmer.Value, error) {
		level := args[0].I32()
		msg, _ := readString(hc, args[1].I32())
		if level == 0 && !allowCriticalLog() {
			err := ErrCriticalLog{Message: msg}
			hc.Err = err
			return nil, err
		}
		logAtLevel(hc, level, msg)
		return []wasmer.Value{}, nil
	})

	bigIntBinop := func(op string, fn func(a, b *big.Int) *big.Int) *wasmer.Function {
		return wasmer.NewFunction(store, i32Type(2, 1), func(args []wasmer.Value) ([]wasmer.Value, error) {
			a := readBigInt(hc, args[0].I32())
			b := readBigInt(hc, args[1].I32())
			result := fn(a, b)
			if result.BitLen() > 435412 {
				err := ErrNumberTooBig{Op: op}
				hc.Err = err
				return nil, err
			}
			return []wasmer.Value{wasmer.NewI32(writeBigInt(hc, result))}, nil
		})
	}

	bigIntPlus := bigIntBinop("plus", func(a, b *big.Int) *big.Int { return new(big.Int).Add(a, b) })
	bigIntMinus := bigIntBinop("minus", func(a, b *big.Int) *big.Int { return new(big.Int).Sub(a, b) })
	bigIntTimes := bigIntBinop("times", func(a, b *big.Int) *big.Int { return new(big.Int).Mul(a, b) })
	bigIntDividedBy := wasmer.NewFunction(store, i32Type(2, 1), func(args []wasmer.Value) ([]wasmer.Value, error) {
		a := readBigInt(hc, args[0].I32())
		b := readBigInt(hc, args[1].I32())
		if b.Sign() == 0 {
			err := ErrNumberTooBig{Op: "dividedBy"}
			hc.Err = err
			return nil, err
		}
		return []wasmer.Value{wasmer.NewI32(writeBigInt(hc, new(big.Int).Quo(a, b)))}, nil
	})
	bigIntMod := wasmer.NewFunction(store, i32Type(2, 1), func(args []wasmer.Value) ([]wasmer.Value, error) {
		a := readBigInt(hc, args[0].I32())
		b := readBigInt(hc, args[1].I32())
		if b.Sign() == 0 {
			err := ErrNumberTooBig{Op: "mod"}
			hc.Err = err
			return nil, err
		}
		return []wasmer.Value{wasmer.NewI32(writeBigInt(hc, new(big.Int).Rem(a, b)))}, nil
	})
	bigIntPow := wasmer.NewFunction(store, i32Type(2, 1), func(args []wasmer.Value) ([]wasmer.Value, error) {
		a := readBigInt(hc, args[0].I32())
		exp := args[1].I32()
		result := new(big.Int).Exp(a, big.NewInt(int64(exp)), nil)
		if result.BitLen() > 435412 {
			err := ErrNumberTooBig{Op: "pow"}
			hc.Err = err
			return nil, err
		}
		return []wasmer.Value{wasmer.NewI32(writeBigInt(hc, result))}, nil
	})

	jsonToBigInt := wasmer.NewFunction(store, i32Type(1, 1), func(args []wasmer.Value) ([]wasmer.Value, error) {
		s, _ := readString(hc, args[0].I32())
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			err := ErrBigIntParse{Input: s}
			hc.Err = err
			return nil, err
		}
		return []wasmer.Value{wasmer.NewI32(writeBigInt(hc, v))}, nil
	})

	storeGet := wasmer.NewFunction(store, i32Type(2, 1), func(args []wasmer.Value) ([]wasmer.Value, error) {
		typ, _ := readString(hc, args[0].I32())
		id, _ := readString(hc, args[1].I32())
		entity, ok, err := hc.Store.Get(typ, id)
		if err != nil {
			hc.Err = err
			return nil, err
		}
		if !ok {
			return []wasmer.Value{wasmer.NewI32(0)}, nil
		}
		ptr, err := asc.EntityConverter{}.ToAsc(hc.Asc, entity)
		if err != nil {
			hc.Err = err
			return nil, err
		}
		return []wasmer.Value{wasmer.NewI32(int32(ptr.Offset()))}, nil
	})

	storeSet := wasmer.NewFunction(store, i32Type(3, 0), func(args []wasmer.Value) ([]wasmer.Value, error) {
		typ, _ := readString(hc, args[0].I32())
		_, _ = readString(hc, args[1].I32()) // id is already a field inside the entity map
		entityPtr := asc.SandboxPtr[asc.AscTypedMap](uint32(args[2].I32()))
		entity, err := asc.EntityConverter{}.FromAsc(hc.Asc, entityPtr, 0)
		if err != nil {
			hc.Err = err
			return nil, err
		}
		entity.Type = typ
		if err := entity.Validate(); err != nil {
			hc.Err = err
			return nil, err
		}
		if err := hc.Store.Set(typ, entity); err != nil {
			hc.Err = err
			return nil, err
		}
		return []wasmer.Value{}, nil
	})

	dsAddress := wasmer.NewFunction(store, i32Type(0, 1), func([]wasmer.Value) ([]wasmer.Value, error) {
		p, err := writeString(hc, hc.DataSource.Address)
		if err != nil {
			hc.Err = err
			return nil, err
		}
		return []wasmer.Value{wasmer.NewI32(p)}, nil
	})
	dsNetwork := wasmer.NewFunction(store, i32Type(0, 1), func([]wasmer.Value) ([]wasmer.Value, error) {
		p, err := writeString(hc, hc.DataSource.Network)
		if err != nil {
			hc.Err = err
			return nil, err
		}
		return []wasmer.Value{wasmer.NewI32(p)}, nil
	})
	dsContext := wasmer.NewFunction(store, i32Type(0, 1), func([]wasmer.Value) ([]wasmer.Value, error) {
		ptr, err := asc.EntityConverter{}.ToAsc(hc.Asc, hc.DataSource.Context)
		if err != nil {
			hc.Err = err
			return nil, err
		}
		return []wasmer.Value{wasmer.NewI32(int32(ptr.Offset()))}, nil
	})

	imports.Register("env", map[string]wasmer.IntoExtern{"abort": envAbort})
	imports.Register("log", map[string]wasmer.IntoExtern{"log": logLog})
	imports.Register("bigInt", map[string]wasmer.IntoExtern{
		"plus":      bigIntPlus,
		"minus":     bigIntMinus,
		"times":     bigIntTimes,
		"dividedBy": bigIntDividedBy,
		"mod":       bigIntMod,
		"pow":       bigIntPow,
	})
	imports.Register("json", map[string]wasmer.IntoExtern{"toBigInt": jsonToBigInt})
	imports.Register("store", map[string]wasmer.IntoExtern{"get": storeGet, "set": storeSet})
	imports.Register("dataSource", map[string]wasmer.IntoExtern{
		"address": dsAddress,
		"network": dsNetwork,
		"context": dsContext,
	})

	return imports
}

func logAtLevel(hc *Context, level int32, msg string) {
	switch level {
	case 1:
		hc.Logger.Error(msg)
	case 2:
		hc.Logger.Warn(msg)
	case 3:
		hc.Logger.Info(msg)
	default:
		hc.Logger.Debug(msg)
	}
}
