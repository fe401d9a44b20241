package subgraph

import (
	"datafast-runtime/internal/model"
)

// logArg renders a matched log as the typed map a handler export expects
// to receive: the fields every Ethereum log handler needs (address,
// indexed/data topics, block and transaction position), independent of
// any particular event's ABI-decoded parameter names. Full ABI parameter
// decoding is a datasource-specific concern the compiled mapping module
// performs itself once it has the raw topics/data, matching how
// AssemblyScript subgraph mappings receive an ethereum.Event and decode
// its `parameters` themselves.
func logArg(log model.Log) model.Entity {
	e := model.Entity{Type: "EthereumLog"}
	e.Set("id", model.NewString(log.TxHash.Hex()))
	e.Set("address", model.NewString(log.Address.Hex()))
	e.Set("blockNumber", model.NewInt64(int64(log.BlockNumber)))
	e.Set("logIndex", model.NewInt32(int32(log.LogIndex)))
	e.Set("transactionHash", model.NewString(log.TxHash.Hex()))
	topics := make([]model.Value, len(log.Topics))
	for i, t := range log.Topics {
		topics[i] = model.NewString(t.Hex())
	}
	e.Set("topics", model.NewList(topics))
	e.Set("data", model.NewBytes(log.Data))
	return e
}

// blockArg renders a block's header as the typed map a block handler
// export expects.
func blockArg(b model.Block) model.Entity {
	e := model.Entity{Type: "EthereumBlock"}
	e.Set("id", model.NewString(b.Hash.Hex()))
	e.Set("number", model.NewInt64(int64(b.Number)))
	e.Set("hash", model.NewString(b.Hash.Hex()))
	e.Set("parentHash", model.NewString(b.ParentHash.Hex()))
	e.Set("timestamp", model.NewInt64(int64(b.Timestamp)))
	return e
}
