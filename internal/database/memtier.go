package database

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"datafast-runtime/internal/model"
)

// memTier is the write-through front cache (spec.md §4.7 "memory tier"),
// an LRU keyed on (type, id) sized by rtconfig's database.memory_entries.
// A deleted marker (tombstone=true) is cached too, so a Load right after a
// Delete in the same block doesn't fall through to the durable tier and
// resurrect a stale row.
type memTier struct {
	cache *lru.Cache[Key, memEntry]
}

type memEntry struct {
	entity    model.Entity
	tombstone bool
}

func newMemTier(size int) *memTier {
	c, err := lru.New[Key, memEntry](size)
	if err != nil {
		// Only returns an error for size <= 0; callers pass a validated
		// config value, so fall back to a minimal usable cache instead of
		// threading an error through every constructor.
		c, _ = lru.New[Key, memEntry](1)
	}
	return &memTier{cache: c}
}

func (m *memTier) get(k Key) (model.Entity, bool, bool) {
	e, ok := m.cache.Get(k)
	if !ok {
		return model.Entity{}, false, false
	}
	return e.entity, !e.tombstone, true
}

func (m *memTier) put(k Key, e model.Entity) {
	m.cache.Add(k, memEntry{entity: e})
}

func (m *memTier) tombstone(k Key) {
	m.cache.Add(k, memEntry{tombstone: true})
}

func (m *memTier) purge() {
	m.cache.Purge()
}
