// Package pipeline wires the Block Source, Serializer, Data Filter,
// Subgraph Dispatcher and Database into the single forward-flowing stream
// spec.md §4 describes, each stage its own goroutine connected by bounded
// channels and supervised by an errgroup (SPEC_FULL.md §6.12). Translated
// from original_source/src/core.rs's task composition into Go's
// channel/errgroup idiom rather than Rust's async tasks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"datafast-runtime/internal/blocksource"
	"datafast-runtime/internal/database"
	"datafast-runtime/internal/datafilter"
	"datafast-runtime/internal/metrics"
	"datafast-runtime/internal/model"
	"datafast-runtime/internal/serializer"
	"datafast-runtime/internal/valve"
)

// Dispatcher is the subset of *subgraph.Dispatcher the pipeline drives,
// narrowed so tests can substitute a fake without a sandboxed WASM module.
type Dispatcher interface {
	Dispatch(block model.Block, msg datafilter.Message) error
}

// Pipeline owns one instance of every stage and the channels between them.
type Pipeline struct {
	Source     blocksource.Source
	Serializer *serializer.Serializer
	Filter     *datafilter.Filter
	Dispatcher Dispatcher
	DB         *database.Database
	Valve      *valve.Valve
	Metrics    *metrics.Registry

	ChannelBuffer int
	FinalizeEvery uint64
	EntityTypes   []string

	Logger *zap.Logger
}

// Run starts every stage and blocks until the source is exhausted, ctx is
// cancelled, or a stage returns a non-cancellation error. On the latter it
// returns a FatalError wrapping that stage's error; every other stage is
// cancelled and drained before Run returns (spec.md §7 fatal-error policy).
func (p *Pipeline) Run(ctx context.Context) error {
	buf := p.ChannelBuffer
	if buf <= 0 {
		buf = 1
	}

	parent := ctx
	g, ctx := errgroup.WithContext(ctx)

	rawCh := make(chan blocksource.Message, buf)
	serCh := make(chan serializer.Message, buf)
	filtIn := make(chan serializer.Message, buf)
	filtCh := make(chan datafilter.Message, buf)

	var mu sync.Mutex
	var stageErrs error
	record := func(stage string, err error) error {
		if err != nil {
			mu.Lock()
			stageErrs = multierr.Append(stageErrs, fmt.Errorf("%s: %w", stage, err))
			mu.Unlock()
		}
		return err
	}

	g.Go(func() error {
		defer close(rawCh)
		return record("source", p.Source.Run(ctx, rawCh))
	})

	g.Go(func() error {
		defer close(serCh)
		return record("serializer", p.Serializer.Run(ctx, rawCh, serCh))
	})

	g.Go(func() error {
		defer close(filtIn)
		return record("valve", p.tapDownloaded(ctx, serCh, filtIn))
	})

	g.Go(func() error {
		defer close(filtCh)
		return record("filter", p.Filter.Run(ctx, filtIn, filtCh))
	})

	g.Go(func() error {
		return record("dispatch", p.drain(ctx, filtCh))
	})

	_ = g.Wait()

	if stageErrs == nil {
		return nil
	}
	if parent.Err() != nil && onlyCancellations(stageErrs) {
		// The caller cancelled us (graceful shutdown); every stage
		// unwinding with context.Canceled is expected, not fatal.
		return nil
	}
	return FatalError{Cause: stageErrs}
}

// onlyCancellations reports whether every error multierr aggregated is a
// context cancellation, as opposed to at least one genuine stage failure.
func onlyCancellations(err error) bool {
	for _, e := range multierr.Errors(err) {
		if !errorsIsCancel(e) {
			return false
		}
	}
	return true
}

func errorsIsCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// tapDownloaded forwards serializer output to the filter stage, recording
// each block's arrival with the Valve and a metric before passing it on
// (spec.md §4.8: "the Serializer advances Downloaded").
func (p *Pipeline) tapDownloaded(ctx context.Context, in <-chan serializer.Message, out chan<- serializer.Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-in:
			if !ok {
				return nil
			}
			if p.Valve != nil {
				p.Valve.AdvanceDownloaded(msg.Block.Number)
			}
			if p.Metrics != nil {
				p.Metrics.BlocksDownloaded.Inc()
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// drain is the terminal stage: it dispatches each filtered block to every
// datasource in manifest order, then advances Finished and periodically
// finalizes the durable tier (spec.md §4.7 "Finalize").
func (p *Pipeline) drain(ctx context.Context, in <-chan datafilter.Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-in:
			if !ok {
				return nil
			}
			if p.Metrics != nil {
				p.Metrics.BlocksFiltered.Inc()
			}
			if err := p.Dispatcher.Dispatch(msg.Block, msg); err != nil {
				return err
			}
			if p.Valve != nil {
				p.Valve.AdvanceFinished(msg.Block.Number)
			}
			if p.Metrics != nil {
				p.Metrics.BlocksProcessed.Inc()
			}
			if p.FinalizeEvery > 0 && msg.Block.Number%p.FinalizeEvery == 0 && msg.Block.Number > 0 {
				if err := p.DB.Finalize(p.EntityTypes, msg.Block.Number-p.FinalizeEvery); err != nil {
					return err
				}
			}
		}
	}
}
