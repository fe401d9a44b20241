package serializer

import (
	"github.com/ethereum/go-ethereum/common"

	"datafast-runtime/internal/model"
)

// decodeBlockHeader extracts a canonical block header from the typed map a
// transform handler returns: "number" and "timestamp" as Int64, "hash"
// and "parentHash" as String (hex-encoded). Transaction and log bodies
// are not part of a transform handler's return value — transform mode's
// contract is that the handler itself performs whatever entity writes the
// raw payload requires, so downstream stages only need the header to
// track progress and, for datasources with blockHandlers, to re-invoke
// per-block mapping logic.
func decodeBlockHeader(e model.Entity) (model.Block, error) {
	number, err := requireInt64(e, "number")
	if err != nil {
		return model.Block{}, err
	}
	hash, err := requireHash(e, "hash")
	if err != nil {
		return model.Block{}, err
	}
	parentHash, err := requireHash(e, "parentHash")
	if err != nil {
		return model.Block{}, err
	}
	timestamp, err := requireInt64(e, "timestamp")
	if err != nil {
		return model.Block{}, err
	}
	return model.Block{
		Number:     uint64(number),
		Hash:       hash,
		ParentHash: parentHash,
		Timestamp:  uint64(timestamp),
	}, nil
}

func requireInt64(e model.Entity, field string) (int64, error) {
	v, ok := e.Get(field)
	if !ok {
		return 0, ErrMissingField{Field: field}
	}
	switch v.Kind {
	case model.ValueInt64:
		return v.I64, nil
	case model.ValueInt32:
		return int64(v.I32), nil
	default:
		return 0, ErrFieldKind{Field: field, Got: v.Kind.String()}
	}
}

func requireHash(e model.Entity, field string) (common.Hash, error) {
	v, ok := e.Get(field)
	if !ok {
		return common.Hash{}, ErrMissingField{Field: field}
	}
	if v.Kind != model.ValueString {
		return common.Hash{}, ErrFieldKind{Field: field, Got: v.Kind.String()}
	}
	return common.HexToHash(v.Str), nil
}
