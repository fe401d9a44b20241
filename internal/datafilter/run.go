package datafilter

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"datafast-runtime/internal/serializer"
)

// DefaultBatchSize caps how many buffered messages Run gathers before
// filtering them concurrently. A larger batch gives the worker pool more
// to chew on per round; it does not bound memory unboundedly since it is
// capped at this constant regardless of channel depth.
const DefaultBatchSize = 64

// Run drains in, filters messages in parallel batches (spec.md §4.5
// "messages in one batch are filtered in parallel, then sorted by block
// number before emission"), and forwards results on out in block-number
// order, until in closes or ctx is cancelled.
func (f *Filter) Run(ctx context.Context, in <-chan serializer.Message, out chan<- Message) error {
	for {
		batch, open, err := collectBatch(ctx, in, DefaultBatchSize)
		if err != nil {
			return err
		}
		if len(batch) > 0 {
			results := make([]Message, len(batch))
			g, _ := errgroup.WithContext(ctx)
			g.SetLimit(max(1, runtime.GOMAXPROCS(0)))
			for i, msg := range batch {
				i, msg := i, msg
				g.Go(func() error {
					results[i] = f.Apply(msg.Block)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			sort.SliceStable(results, func(i, j int) bool {
				return results[i].Block.Number < results[j].Block.Number
			})
			for _, r := range results {
				select {
				case out <- r:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		if !open {
			return nil
		}
	}
}

// collectBatch blocks for the first message, then opportunistically
// drains up to limit-1 more without blocking, so a quiet channel still
// makes forward progress one message at a time rather than stalling for a
// full batch. The returned bool is false once in has been closed and
// drained.
func collectBatch(ctx context.Context, in <-chan serializer.Message, limit int) ([]serializer.Message, bool, error) {
	var batch []serializer.Message
	select {
	case msg, ok := <-in:
		if !ok {
			return nil, false, nil
		}
		batch = append(batch, msg)
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
	for len(batch) < limit {
		select {
		case msg, ok := <-in:
			if !ok {
				return batch, false, nil
			}
			batch = append(batch, msg)
		default:
			return batch, true, nil
		}
	}
	return batch, true, nil
}
