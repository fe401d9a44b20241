// Package valve implements the flow-control record coupling download
// progress to processing progress (spec.md §4.8): the Source polls
// ShouldContinue before fetching more blocks, and the pipeline advances
// Downloaded as each block leaves the Serializer and Finished once the
// Subgraph Dispatcher has applied the block's writes.
package valve

import (
	"sync"
	"time"
)

// Valve is a single-writer/many-reader record guarded by a sync.RWMutex,
// grounded on the same lock discipline core/virtual_machine.go's memState
// applies to its balance/contract maps.
type Valve struct {
	mu sync.RWMutex

	finishedBlock   uint64
	downloadedBlock uint64
	allowedLag      uint64
	waitTime        time.Duration
}

// New constructs a Valve with the given allowed lag (0 disables gating) and
// the duration the Source should sleep while blocked.
func New(allowedLag uint64, waitTime time.Duration) *Valve {
	return &Valve{allowedLag: allowedLag, waitTime: waitTime}
}

// ShouldContinue reports whether the Source may fetch another block:
// either lag gating is disabled (allowedLag == 0) or the gap between
// downloaded and finished progress is still under the configured bound
// (spec.md §4.8, §8 "Valve" property).
func (v *Valve) ShouldContinue() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.allowedLag == 0 {
		return true
	}
	return v.downloadedBlock-v.finishedBlock < v.allowedLag
}

// Wait blocks for the configured wait time. The sources in
// internal/blocksource do not call it; they sleep for WaitTime themselves
// while ShouldContinue reports false.
func (v *Valve) Wait() {
	time.Sleep(v.WaitTime())
}

// WaitTime returns the configured sleep duration for a gated Source.
func (v *Valve) WaitTime() time.Duration {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.waitTime
}

// AdvanceDownloaded records that a block has been decoded by the
// Serializer. It only ever moves forward.
func (v *Valve) AdvanceDownloaded(block uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if block > v.downloadedBlock {
		v.downloadedBlock = block
	}
}

// AdvanceFinished records that a block's writes have been durably applied
// by the Database, called by the pipeline once the Subgraph Dispatcher has
// processed the block.
func (v *Valve) AdvanceFinished(block uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if block > v.finishedBlock {
		v.finishedBlock = block
	}
}

// Progress is a point-in-time snapshot of the Valve's counters, useful for
// metrics export without holding the lock across a Prometheus scrape.
type Progress struct {
	FinishedBlock   uint64
	DownloadedBlock uint64
	AllowedLag      uint64
}

// Snapshot returns the current progress counters.
func (v *Valve) Snapshot() Progress {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return Progress{
		FinishedBlock:   v.finishedBlock,
		DownloadedBlock: v.downloadedBlock,
		AllowedLag:      v.allowedLag,
	}
}
