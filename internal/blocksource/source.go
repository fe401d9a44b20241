// Package blocksource implements the Block Source component (spec.md
// §4.3): a producer of SourceDataMessage onto a bounded channel, gated by
// the Valve so a fast reader never runs far ahead of processing.
package blocksource

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"datafast-runtime/internal/model"
)

// Kind discriminates the SourceDataMessage union (spec.md §4.3).
type Kind int

const (
	// KindJSON carries a raw decoded JSON value, destined for transform
	// mode (the Serializer runs a mapping handler over it).
	KindJSON Kind = iota
	// KindProtobuf carries opaque protobuf bytes, decoded into a
	// self-describing structpb.Struct before reaching the Serializer.
	KindProtobuf
	// KindAlreadySerialized carries a canonical block record directly,
	// for sources that need no transform step (direct mode).
	KindAlreadySerialized
)

// Message is the Go rendering of spec.md's SourceDataMessage tagged union.
// Exactly one of JSON, Protobuf or Block is populated, per Kind.
type Message struct {
	Kind     Kind
	JSON     any
	Protobuf *structpb.Struct
	Block    model.Block
}

// Source produces Messages onto a bounded channel until ctx is cancelled
// or the block range is exhausted (spec.md §4.3 "producer... onto a
// bounded async channel").
type Source interface {
	// Run streams messages onto out until the source is exhausted, ctx is
	// cancelled, or an unrecoverable error occurs. It never closes out —
	// the pipeline owns that so multiple producers could share a channel
	// in principle, matching spec.md's "dropping the channel receiver
	// causes the producer task to complete on next send attempt".
	Run(ctx context.Context, out chan<- Message) error
}

// trySend delivers msg on out, respecting ctx cancellation so a cancelled
// pipeline unblocks a producer stuck on a full channel instead of leaking
// the goroutine (spec.md §4.3 cancellation rule).
func trySend(ctx context.Context, out chan<- Message, msg Message) error {
	select {
	case out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
