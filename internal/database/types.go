// Package database implements the tiered store described in spec.md §4.7:
// a write-through memory tier backed by a durable external tier, with
// revert-to-block and finalize semantics keyed on the block-ptr logical
// clock (spec.md §3 "Database entries created at block N are revertible").
package database

import "datafast-runtime/internal/model"

// Key identifies one entity row by its type and id.
type Key struct {
	Type string
	ID   string
}

// VersionedEntity is one durable-tier row: an entity snapshot plus the
// block at which it was created/updated and, if applicable, soft-deleted.
type VersionedEntity struct {
	Entity       model.Entity
	CreatedBlock uint64
	UpdatedBlock uint64
	IsDeleted    bool
	DeletedBlock uint64
}

// ExternDB is the durable tier: one concrete backend is a wide-column
// database, others are pluggable (spec.md §4.7). All methods here operate
// in terms of a block-ptr logical clock so revert/finalize can act on
// "every row touched at block >= N" without any wall-clock notion.
type ExternDB interface {
	// LoadLatest returns the current (non-deleted) version of (typ, id),
	// or ok=false if absent or soft-deleted.
	LoadLatest(typ, id string) (VersionedEntity, bool, error)
	// LoadInBlock returns the version of (typ, id) created/updated exactly
	// at block, if any (spec.md §4.7 LoadInBlock).
	LoadInBlock(typ, id string, block uint64) (VersionedEntity, bool, error)
	// AllOfType returns every non-deleted row of typ, used to resolve
	// LoadRelated's reverse/forward scans.
	AllOfType(typ string) ([]VersionedEntity, error)

	// Create durably records entity as a new row created at block.
	Create(block uint64, entity model.Entity) error
	// Update durably records entity as a new version at block, retaining
	// the prior version for revert purposes.
	Update(block uint64, entity model.Entity) error
	// Delete soft-deletes (typ, id) at block.
	Delete(typ, id string, block uint64) error

	// RevertCreateEntity hard-deletes every row created at block >= from.
	RevertCreateEntity(from uint64) error
	// RevertDeleteEntity clears the soft-delete flag on every row
	// soft-deleted at block >= from.
	RevertDeleteEntity(from uint64) error
	// HardDeleteAllEntitiesToBlock prunes pre-toBlock versions of the
	// given entity types, finalizing them beyond revert (spec.md §4.7).
	HardDeleteAllEntitiesToBlock(types []string, toBlock uint64) error

	// Close releases any resources (open files, pooled connections).
	Close() error
}
