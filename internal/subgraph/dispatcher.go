package subgraph

import (
	"fmt"

	"go.uber.org/zap"

	"datafast-runtime/internal/asc"
	"datafast-runtime/internal/datafilter"
	"datafast-runtime/internal/hostfns"
	"datafast-runtime/internal/manifest"
	"datafast-runtime/internal/model"
	"datafast-runtime/internal/sandbox"
)

// WasmLoader resolves a datasource's compiled mapping module bytes and
// declared api version, e.g. by reading manifest.DataSource.ResolvedWasmFile.
type WasmLoader func(ds manifest.DataSource) ([]byte, asc.Version, error)

// Dispatcher owns one sandbox.Instance per datasource (spec.md §4.6), and
// dispatches a filtered block's matched events/blocks to them in
// manifest-declared order.
type Dispatcher struct {
	order     []string
	instances map[string]*sandbox.Instance
	adapter   *StoreAdapter
	network   string
}

// New compiles and instantiates one sandbox per datasource, in the order
// datasources appear in the manifest.
func New(datasources []manifest.DataSource, load WasmLoader, adapter *StoreAdapter, logger *zap.Logger, network string) (*Dispatcher, error) {
	d := &Dispatcher{
		instances: make(map[string]*sandbox.Instance, len(datasources)),
		adapter:   adapter,
		network:   network,
	}
	for _, ds := range datasources {
		wasmBytes, version, err := load(ds)
		if err != nil {
			return nil, fmt.Errorf("subgraph: load %s: %w", ds.Name, err)
		}
		inst, err := sandbox.New(ds.Name, wasmBytes, version, adapter, logger, ds.HandlerNames())
		if err != nil {
			return nil, fmt.Errorf("subgraph: instantiate %s: %w", ds.Name, err)
		}
		d.instances[ds.Name] = inst
		d.order = append(d.order, ds.Name)
	}
	return d, nil
}

// Dispatch runs every matched event and block handler in msg against the
// owning datasource's sandbox instance, in manifest-declared datasource
// order, then within a datasource in the order the Filter emitted matches
// (handler-major, log-index-minor — spec.md §8). A handler failure is
// fatal and aborts the whole block (spec.md §4.6 step 5).
func (d *Dispatcher) Dispatch(block model.Block, msg datafilter.Message) error {
	d.adapter.SetBlock(block.Number)

	for _, dsName := range d.order {
		inst, ok := d.instances[dsName]
		if !ok {
			return ErrUnknownDatasource{Name: dsName}
		}
		inst.SetDataSource(hostfns.DataSourceInfo{
			Address: dsAddressOf(dsName, msg),
			Network: d.network,
		})

		for _, ev := range msg.MatchedEvents {
			if ev.Datasource != dsName {
				continue
			}
			if err := d.callEvent(inst, ev); err != nil {
				return err
			}
		}
		for _, b := range msg.MatchedBlocks {
			if b.Datasource != dsName {
				continue
			}
			if err := d.callBlock(inst, block, b); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Dispatcher) callEvent(inst *sandbox.Instance, ev datafilter.MatchedEvent) error {
	h := inst.Asc()
	argPtr, err := asc.AscNew(h, asc.EntityConverter{}, logArg(ev.Log))
	if err != nil {
		return ErrHandlerFailed{Datasource: ev.Datasource, Handler: ev.HandlerName, Cause: err}
	}
	if err := inst.CallHandler(ev.HandlerName, argPtr.Offset()); err != nil {
		return ErrHandlerFailed{Datasource: ev.Datasource, Handler: ev.HandlerName, Cause: err}
	}
	return nil
}

func (d *Dispatcher) callBlock(inst *sandbox.Instance, block model.Block, mb datafilter.MatchedBlock) error {
	h := inst.Asc()
	argPtr, err := asc.AscNew(h, asc.EntityConverter{}, blockArg(block))
	if err != nil {
		return ErrHandlerFailed{Datasource: mb.Datasource, Handler: mb.HandlerName, Cause: err}
	}
	if err := inst.CallHandler(mb.HandlerName, argPtr.Offset()); err != nil {
		return ErrHandlerFailed{Datasource: mb.Datasource, Handler: mb.HandlerName, Cause: err}
	}
	return nil
}

// dsAddressOf returns the log address this datasource's first matched
// event came from, for the dataSource.address host function. Falls back
// to empty for address-less (block-handler-only) datasources.
func dsAddressOf(dsName string, msg datafilter.Message) string {
	for _, ev := range msg.MatchedEvents {
		if ev.Datasource == dsName {
			return ev.Log.Address.Hex()
		}
	}
	return ""
}

// Close releases every owned sandbox instance.
func (d *Dispatcher) Close() {
	for _, inst := range d.instances {
		inst.Close()
	}
}
