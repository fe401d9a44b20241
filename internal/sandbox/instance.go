package sandbox

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/wasmerio/wasmer-go/wasmer"
	"go.uber.org/zap"

	"datafast-runtime/internal/asc"
	"datafast-runtime/internal/hostfns"
)

// Instance owns one compiled mapping module for one datasource: the
// wasmer engine/store/module/instance quartet, the Asc bridge bound to its
// memory, and the handler exports the manifest declared. It is never
// shared across goroutines — entered reports ErrReentrant if that
// invariant is violated (spec.md §5).
type Instance struct {
	Datasource string

	engine *wasmer.Engine
	store  *wasmer.Store
	module *wasmer.Module
	inst   *wasmer.Instance

	host *hostfns.Context
	asc  *asc.Host

	handlers map[string]*wasmer.Function

	id       string
	entered  atomic.Bool
}

// New compiles wasmBytes and instantiates it against the host function
// table (spec.md §6 "Guest ABI"), binding apiVersion to the Asc bridge and
// resolving the allocator/id_of_type exports for that layout version.
// handlerExports lists every handler function name the manifest declares
// for this datasource; a missing export is a fatal load error.
func New(datasource string, wasmBytes []byte, apiVersion asc.Version, store hostfns.StoreOps, logger *zap.Logger, handlerExports []string) (*Instance, error) {
	engine := wasmer.NewEngine()
	wstore := wasmer.NewStore(engine)

	module, err := wasmer.NewModule(wstore, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("sandbox: compile module for %s: %w", datasource, err)
	}

	ascHost := &asc.Host{Version: apiVersion}
	hc := &hostfns.Context{Asc: ascHost, Store: store, Logger: logger.With(zap.String("datasource", datasource))}

	imports := hostfns.Register(wstore, hc)
	inst, err := wasmer.NewInstance(module, imports)
	if err != nil {
		return nil, fmt.Errorf("sandbox: instantiate %s: %w", datasource, err)
	}

	mem, err := inst.Exports.GetMemory("memory")
	if err != nil {
		return nil, ErrMissingExport{Name: "memory"}
	}
	ascHost.Mem = &wasmMemory{mem: mem}

	allocFn, err := inst.Exports.GetFunction(ascHost.AllocatorExportName())
	if err != nil {
		return nil, ErrMissingExport{Name: ascHost.AllocatorExportName()}
	}
	ascHost.Alloc = &exportAllocator{fn: allocFn}

	idOfType, err := inst.Exports.GetFunction("id_of_type")
	if err != nil {
		return nil, ErrMissingExport{Name: "id_of_type"}
	}
	ascHost.Types = asc.NewTagTable(&exportTypeIDs{fn: idOfType})

	handlers := make(map[string]*wasmer.Function, len(handlerExports))
	for _, name := range handlerExports {
		fn, err := inst.Exports.GetFunction(name)
		if err != nil {
			return nil, ErrMissingExport{Name: name}
		}
		handlers[name] = fn
	}

	return &Instance{
		Datasource: datasource,
		engine:     engine,
		store:      wstore,
		module:     module,
		inst:       inst,
		host:       hc,
		asc:        ascHost,
		handlers:   handlers,
		id:         uuid.NewString(),
	}, nil
}

// ID returns the instance's opaque identifier, used in logs/metrics.
func (i *Instance) ID() string { return i.id }

// Asc exposes the Asc bridge bound to this instance's memory/allocator, so
// the Subgraph Dispatcher can marshal handler arguments before calling
// CallHandler.
func (i *Instance) Asc() *asc.Host { return i.asc }

// SetDataSource updates the per-invocation context (§4.6 step 1) the
// dataSource.* host functions read.
func (i *Instance) SetDataSource(ds hostfns.DataSourceInfo) { i.host.DataSource = ds }

// CallHandler invokes the named export with argPtr as its sole argument —
// every declared handler (event or block) takes one pointer to its
// marshaled argument, per the manifest's handler declaration. Concurrent
// calls from two goroutines panic with ErrReentrant rather than silently
// serializing, asserting spec.md §5's single-task-at-a-time invariant.
func (i *Instance) CallHandler(name string, argPtr uint32) error {
	_, err := i.callHandler(name, argPtr)
	return err
}

// CallHandlerPtr is CallHandler for handlers that return a pointer to a
// guest object (e.g. a transform-mode handler returning the decoded block
// header), such as the Serializer's transform mode (spec.md §4.4).
func (i *Instance) CallHandlerPtr(name string, argPtr uint32) (uint32, error) {
	return i.callHandler(name, argPtr)
}

func (i *Instance) callHandler(name string, argPtr uint32) (uint32, error) {
	if !i.entered.CompareAndSwap(false, true) {
		panic(ErrReentrant{Datasource: i.Datasource})
	}
	defer i.entered.Store(false)

	i.host.Err = nil
	fn, ok := i.handlers[name]
	if !ok {
		return 0, ErrMissingExport{Name: name}
	}
	ret, err := fn.Call(int32(argPtr))
	if i.host.Err != nil {
		return 0, ErrHandlerTrap{Handler: name, Cause: i.host.Err}
	}
	if err != nil {
		return 0, ErrHandlerTrap{Handler: name, Cause: err}
	}
	retPtr, _ := ret.(int32)
	return uint32(retPtr), nil
}

// Close releases the instance. Guest memory is not persisted across runs
// (spec.md §1 non-goals); there is nothing to flush.
func (i *Instance) Close() {
	i.inst.Close()
	i.module.Close()
	i.store.Close()
}
