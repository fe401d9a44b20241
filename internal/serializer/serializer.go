// Package serializer implements the Serializer stage (spec.md §4.4):
// converts a blocksource.Message into a canonical model.Block, either by
// passing an already-canonical record through (direct mode) or by running
// a mapping handler inside a sandbox instance that both writes entities as
// a side effect and returns the decoded block header (transform mode).
package serializer

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"

	"datafast-runtime/internal/asc"
	"datafast-runtime/internal/blocksource"
	"datafast-runtime/internal/model"
	"datafast-runtime/internal/sandbox"
)

// Mode selects direct or transform operation (spec.md §4.4).
type Mode int

const (
	ModeDirect Mode = iota
	ModeTransform
)

// Message is the Serializer's output, spec.md's SerializedDataMessage.
type Message struct {
	Block model.Block
}

// Serializer converts blocksource.Message values into Message values,
// preserving input order (spec.md §4.4 "output order matches input order
// per source"). A transform-mode failure is fatal and halts the stage,
// since reordering after a partial batch would break revert semantics.
type Serializer struct {
	mode    Mode
	inst    *sandbox.Instance
	handler string
}

// NewDirect builds a direct-mode Serializer: every input message must
// already carry blocksource.KindAlreadySerialized.
func NewDirect() *Serializer {
	return &Serializer{mode: ModeDirect}
}

// NewTransform builds a transform-mode Serializer bound to inst's handler
// export named by handler (the manifest/config's `transform.func_name`).
func NewTransform(inst *sandbox.Instance, handler string) *Serializer {
	return &Serializer{mode: ModeTransform, inst: inst, handler: handler}
}

// Run drains in, converts each message, and forwards it on out, until in
// is closed or ctx is cancelled. A conversion error is returned
// immediately (fatal), matching spec.md §4.4's halt-on-error contract.
func (s *Serializer) Run(ctx context.Context, in <-chan blocksource.Message, out chan<- Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-in:
			if !ok {
				return nil
			}
			converted, err := s.convert(msg)
			if err != nil {
				return err
			}
			select {
			case out <- converted:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (s *Serializer) convert(msg blocksource.Message) (Message, error) {
	switch s.mode {
	case ModeDirect:
		if msg.Kind != blocksource.KindAlreadySerialized {
			return Message{}, ErrUnexpectedKind{Kind: int(msg.Kind)}
		}
		return Message{Block: msg.Block}, nil
	default:
		return s.transform(msg)
	}
}

// transform marshals msg's payload to a JSON string, passes it to the
// bound handler export, and decodes the returned typed-map pointer into a
// block header. Any entity writes the handler makes via store.set land in
// the Database as a side effect of the call itself.
func (s *Serializer) transform(msg blocksource.Message) (Message, error) {
	payload, err := rawPayloadJSON(msg)
	if err != nil {
		return Message{}, fmt.Errorf("serializer: marshal payload: %w", err)
	}

	h := s.inst.Asc()
	argPtr, err := asc.AscNew(h, asc.StringConverter{}, string(payload))
	if err != nil {
		return Message{}, fmt.Errorf("serializer: marshal argument: %w", err)
	}

	retPtr, err := s.inst.CallHandlerPtr(s.handler, argPtr.Offset())
	if err != nil {
		return Message{}, err
	}

	header, err := asc.AscGet(h, asc.EntityConverter{}, asc.SandboxPtr[asc.AscTypedMap](retPtr), 0)
	if err != nil {
		return Message{}, fmt.Errorf("serializer: decode block header: %w", err)
	}
	block, err := decodeBlockHeader(header)
	if err != nil {
		return Message{}, err
	}
	return Message{Block: block}, nil
}

func rawPayloadJSON(msg blocksource.Message) ([]byte, error) {
	switch msg.Kind {
	case blocksource.KindProtobuf:
		return protojson.Marshal(msg.Protobuf)
	case blocksource.KindAlreadySerialized:
		return json.Marshal(msg.Block)
	default:
		return json.Marshal(msg.JSON)
	}
}
