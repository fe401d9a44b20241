package database

import (
	"fmt"

	"datafast-runtime/internal/model"
)

// Database is the tiered store the store.* host functions and the
// Subgraph Dispatcher talk to: reads hit the memory tier first and fall
// through to the durable tier on a miss, writes go to both (spec.md §4.7
// "write-through"). It additionally tracks the schema needed to resolve
// LoadRelated's reverse-lookup fields.
type Database struct {
	mem    *memTier
	extern ExternDB
	schema model.Schema
}

// Config controls the memory tier's capacity; rtconfig populates this from
// the runtime's [database] section.
type Config struct {
	MemoryEntries int
}

// New wires a Database over the given durable backend and schema.
func New(extern ExternDB, schema model.Schema, cfg Config) *Database {
	size := cfg.MemoryEntries
	if size <= 0 {
		size = 10_000
	}
	return &Database{mem: newMemTier(size), extern: extern, schema: schema}
}

// Load returns the live entity for (typ, id), preferring the memory tier.
func (d *Database) Load(typ, id string) (model.Entity, bool, error) {
	if e, ok, hit := d.mem.get(Key{Type: typ, ID: id}); hit {
		return e, ok, nil
	}
	v, ok, err := d.extern.LoadLatest(typ, id)
	if err != nil {
		return model.Entity{}, false, fmt.Errorf("database: load %s/%s: %w", typ, id, err)
	}
	if !ok {
		return model.Entity{}, false, nil
	}
	d.mem.put(Key{Type: typ, ID: id}, v.Entity)
	return v.Entity, true, nil
}

// LoadInBlock bypasses the memory tier to return exactly the version
// written at block, used by handlers that need historical state rather
// than the current head (spec.md §4.7 LoadInBlock).
func (d *Database) LoadInBlock(typ, id string, block uint64) (model.Entity, bool, error) {
	v, ok, err := d.extern.LoadInBlock(typ, id, block)
	if err != nil {
		return model.Entity{}, false, fmt.Errorf("database: load %s/%s@%d: %w", typ, id, block, err)
	}
	return v.Entity, ok, nil
}

// LoadRelated resolves every entity of relatedType whose relationField
// holds id — the reverse side of a one-to-many relation declared in the
// schema (spec.md §3 "derived from"/"relation" fields).
func (d *Database) LoadRelated(relatedType, relationField, id string) ([]model.Entity, error) {
	all, err := d.extern.AllOfType(relatedType)
	if err != nil {
		return nil, fmt.Errorf("database: load related %s.%s: %w", relatedType, relationField, err)
	}
	var out []model.Entity
	for _, v := range all {
		if mem, ok, hit := d.mem.get(Key{Type: relatedType, ID: v.Entity.ID}); hit {
			if !ok {
				continue
			}
			v.Entity = mem
		}
		if f, ok := v.Entity.Get(relationField); ok && f.Str == id {
			out = append(out, v.Entity)
		}
	}
	return out, nil
}

// Create validates entity against the schema's no-id-field invariant,
// then writes it through both tiers as a new row at block.
func (d *Database) Create(block uint64, entity model.Entity) error {
	if err := entity.Validate(); err != nil {
		return ErrSchema{Cause: err}
	}
	if err := d.extern.Create(block, entity); err != nil {
		return fmt.Errorf("database: create %s/%s: %w", entity.Type, entity.ID, err)
	}
	d.mem.put(Key{Type: entity.Type, ID: entity.ID}, entity)
	return nil
}

// Update writes entity as a new version at block through both tiers.
func (d *Database) Update(block uint64, entity model.Entity) error {
	if err := entity.Validate(); err != nil {
		return ErrSchema{Cause: err}
	}
	if err := d.extern.Update(block, entity); err != nil {
		return fmt.Errorf("database: update %s/%s: %w", entity.Type, entity.ID, err)
	}
	d.mem.put(Key{Type: entity.Type, ID: entity.ID}, entity)
	return nil
}

// Delete soft-deletes (typ, id) at block through both tiers.
func (d *Database) Delete(typ, id string, block uint64) error {
	if err := d.extern.Delete(typ, id, block); err != nil {
		return fmt.Errorf("database: delete %s/%s: %w", typ, id, err)
	}
	d.mem.tombstone(Key{Type: typ, ID: id})
	return nil
}

// RevertToBlock undoes every create/update and every delete at block >=
// from (spec.md §4.7 chain-reorg handling), then purges the memory tier
// since its cached rows may now be stale.
func (d *Database) RevertToBlock(from uint64) error {
	if err := d.extern.RevertCreateEntity(from); err != nil {
		return fmt.Errorf("database: revert create from %d: %w", from, err)
	}
	if err := d.extern.RevertDeleteEntity(from); err != nil {
		return fmt.Errorf("database: revert delete from %d: %w", from, err)
	}
	d.mem.purge()
	return nil
}

// Finalize prunes pre-toBlock history for the given entity types, beyond
// any future revert (spec.md §4.7 "finalize").
func (d *Database) Finalize(types []string, toBlock uint64) error {
	if err := d.extern.HardDeleteAllEntitiesToBlock(types, toBlock); err != nil {
		return fmt.Errorf("database: finalize to %d: %w", toBlock, err)
	}
	return nil
}

// Schema exposes the loaded entity schema, consulted by the Subgraph
// Dispatcher when resolving @derivedFrom fields ahead of a LoadRelated call.
func (d *Database) Schema() model.Schema { return d.schema }

// Close releases the durable tier's resources.
func (d *Database) Close() error { return d.extern.Close() }
