// Package subgraph implements the Subgraph Dispatcher (spec.md §4.6): it
// owns one sandbox instance per datasource, sets the per-invocation
// context before each call, and dispatches handlers in manifest-declared
// order so entity writes land deterministically.
package subgraph

import (
	"sync/atomic"

	"datafast-runtime/internal/database"
	"datafast-runtime/internal/model"
)

// StoreAdapter implements hostfns.StoreOps over a tiered Database,
// resolving store.set's "full-record replace" contract (spec.md §4.7)
// into a Create or Update depending on whether the row already exists,
// stamped with whatever block the Dispatcher is currently processing.
type StoreAdapter struct {
	db    *database.Database
	block atomic.Uint64
}

// NewStoreAdapter wraps db for host-function dispatch.
func NewStoreAdapter(db *database.Database) *StoreAdapter {
	return &StoreAdapter{db: db}
}

// SetBlock records the block number entity writes during the next
// handler call should be stamped with. The Dispatcher calls this once per
// block before invoking any handler.
func (a *StoreAdapter) SetBlock(n uint64) { a.block.Store(n) }

// Get implements hostfns.StoreOps.
func (a *StoreAdapter) Get(entityType, id string) (model.Entity, bool, error) {
	return a.db.Load(entityType, id)
}

// Set implements hostfns.StoreOps, routing to Create or Update based on
// current existence of (entityType, e.ID).
func (a *StoreAdapter) Set(entityType string, e model.Entity) error {
	e.Type = entityType
	block := a.block.Load()
	_, exists, err := a.db.Load(entityType, e.ID)
	if err != nil {
		return err
	}
	if exists {
		return a.db.Update(block, e)
	}
	return a.db.Create(block, e)
}
