package model

import "github.com/ethereum/go-ethereum/common"

// BlockPtr is the identity triple of a block, used throughout the database
// and valve components as a logical clock for revertable writes (spec.md
// §3, glossary "Block-ptr").
type BlockPtr struct {
	Number     uint64
	Hash       common.Hash
	ParentHash common.Hash
}

// Block is a canonical, decoded block record: the Serializer's output and
// the Data Filter/Subgraph Dispatcher's input (spec.md §3 "Block record").
type Block struct {
	Number       uint64
	Hash         common.Hash
	ParentHash   common.Hash
	Timestamp    uint64
	Transactions []Transaction
	Logs         []Log
}

// Ptr returns the BlockPtr identifying b.
func (b Block) Ptr() BlockPtr {
	return BlockPtr{Number: b.Number, Hash: b.Hash, ParentHash: b.ParentHash}
}

// Transaction is one decoded transaction inside a Block.
type Transaction struct {
	Hash  common.Hash
	From  common.Address
	To    *common.Address
	Index uint32
}

// Log is one decoded event log inside a Block, the unit the Data Filter
// matches against handler declarations.
type Log struct {
	Address     common.Address
	Topics      []common.Hash
	Data        []byte
	BlockNumber uint64
	LogIndex    uint32
	TxHash      common.Hash
}
