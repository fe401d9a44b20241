package database

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/klauspost/compress/zstd"

	"datafast-runtime/internal/model"
)

// FileDB is the reference durable tier (spec.md §4.7 names a wide-column
// store as the production backend; no such client appears anywhere in the
// example pack, so this stands in as the interface's one concrete,
// crash-recoverable implementation — see DESIGN.md). Every write is
// appended as a zstd-compressed gob record under dir before the in-memory
// index is updated, so Open can replay a directory back to its last
// consistent state after a restart.
type FileDB struct {
	mu  sync.RWMutex
	dir string
	seq uint64

	rows    map[Key][]rowVersion
	created map[Key]uint64
}

type rowVersion struct {
	Entity  model.Entity
	Block   uint64
	Deleted bool
}

type logOp int

const (
	opCreate logOp = iota
	opUpdate
	opDelete
	opRevertCreate
	opRevertDelete
	opHardDelete
)

// logRecord is the on-disk gob payload for one durable-tier mutation.
type logRecord struct {
	Op     logOp
	Block  uint64
	Type   string
	ID     string
	Entity model.Entity
	// Used only by opRevertCreate/opRevertDelete/opHardDelete.
	From  uint64
	Types []string
}

// Open creates dir if absent and replays any existing log segments in
// write order to rebuild the in-memory row index.
func Open(dir string) (*FileDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("database: open %s: %w", dir, err)
	}
	db := &FileDB{
		dir:     dir,
		rows:    make(map[Key][]rowVersion),
		created: make(map[Key]uint64),
	}
	if err := db.replay(); err != nil {
		return nil, err
	}
	return db, nil
}

func (f *FileDB) replay() error {
	entries, err := filepath.Glob(filepath.Join(f.dir, "*.log.zst"))
	if err != nil {
		return fmt.Errorf("database: glob log segments: %w", err)
	}
	sort.Strings(entries)
	for _, path := range entries {
		rec, err := readLogSegment(path)
		if err != nil {
			return fmt.Errorf("database: replay %s: %w", path, err)
		}
		f.apply(rec)
		// Segments are numbered 1..N, so the next write continues at N+1.
		f.seq++
	}
	return nil
}

func readLogSegment(path string) (logRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return logRecord{}, err
	}
	dec, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		return logRecord{}, err
	}
	defer dec.Close()
	var rec logRecord
	if err := gob.NewDecoder(dec).Decode(&rec); err != nil {
		return logRecord{}, err
	}
	return rec, nil
}

func (f *FileDB) appendLog(rec logRecord) error {
	f.seq++
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(enc).Encode(rec); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	// seq leads the filename so lexical Glob order always matches write
	// order: rec.Block is meaningless for the revert/finalize ops, which
	// would otherwise sort ahead of the per-block writes they must
	// follow.
	name := fmt.Sprintf("%020d-%020d.log.zst", f.seq, rec.Block)
	return os.WriteFile(filepath.Join(f.dir, name), buf.Bytes(), 0o644)
}

// apply mutates the in-memory index only; used both for live writes (after
// a successful appendLog) and for replay at Open.
func (f *FileDB) apply(rec logRecord) {
	switch rec.Op {
	case opCreate, opUpdate:
		k := Key{Type: rec.Type, ID: rec.ID}
		f.rows[k] = append(f.rows[k], rowVersion{Entity: rec.Entity, Block: rec.Block})
		if _, ok := f.created[k]; !ok {
			f.created[k] = rec.Block
		}
	case opDelete:
		k := Key{Type: rec.Type, ID: rec.ID}
		f.rows[k] = append(f.rows[k], rowVersion{Entity: rec.Entity, Block: rec.Block, Deleted: true})
	case opRevertCreate:
		for k, versions := range f.rows {
			kept := versions[:0:0]
			for _, v := range versions {
				if v.Block < rec.From {
					kept = append(kept, v)
				}
			}
			if len(kept) == 0 {
				delete(f.rows, k)
				delete(f.created, k)
			} else {
				f.rows[k] = kept
			}
		}
	case opRevertDelete:
		for k, versions := range f.rows {
			kept := versions[:0:0]
			for _, v := range versions {
				if v.Deleted && v.Block >= rec.From {
					continue
				}
				kept = append(kept, v)
			}
			f.rows[k] = kept
		}
	case opHardDelete:
		typeSet := make(map[string]bool, len(rec.Types))
		for _, t := range rec.Types {
			typeSet[t] = true
		}
		for k, versions := range f.rows {
			if !typeSet[k.Type] {
				continue
			}
			f.rows[k] = pruneToBlock(versions, rec.From)
		}
	}
}

// pruneToBlock drops every version older than toBlock except the single
// most recent one, preserving current-state readability while discarding
// history the revert window no longer needs (spec.md §4.7 "finalize").
func pruneToBlock(versions []rowVersion, toBlock uint64) []rowVersion {
	var lastBefore *rowVersion
	var kept []rowVersion
	for i := range versions {
		v := versions[i]
		if v.Block < toBlock {
			cp := v
			lastBefore = &cp
			continue
		}
		kept = append(kept, v)
	}
	if lastBefore != nil {
		kept = append([]rowVersion{*lastBefore}, kept...)
	}
	return kept
}

func (f *FileDB) LoadLatest(typ, id string) (VersionedEntity, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	versions := f.rows[Key{Type: typ, ID: id}]
	if len(versions) == 0 {
		return VersionedEntity{}, false, nil
	}
	last := versions[len(versions)-1]
	if last.Deleted {
		return VersionedEntity{}, false, nil
	}
	return VersionedEntity{
		Entity:       last.Entity,
		CreatedBlock: f.created[Key{Type: typ, ID: id}],
		UpdatedBlock: last.Block,
	}, true, nil
}

func (f *FileDB) LoadInBlock(typ, id string, block uint64) (VersionedEntity, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	versions := f.rows[Key{Type: typ, ID: id}]
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].Block == block {
			if versions[i].Deleted {
				return VersionedEntity{}, false, nil
			}
			return VersionedEntity{
				Entity:       versions[i].Entity,
				CreatedBlock: f.created[Key{Type: typ, ID: id}],
				UpdatedBlock: versions[i].Block,
			}, true, nil
		}
	}
	return VersionedEntity{}, false, nil
}

func (f *FileDB) AllOfType(typ string) ([]VersionedEntity, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []VersionedEntity
	for k, versions := range f.rows {
		if k.Type != typ || len(versions) == 0 {
			continue
		}
		last := versions[len(versions)-1]
		if last.Deleted {
			continue
		}
		out = append(out, VersionedEntity{
			Entity:       last.Entity,
			CreatedBlock: f.created[k],
			UpdatedBlock: last.Block,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entity.ID < out[j].Entity.ID })
	return out, nil
}

func (f *FileDB) Create(block uint64, entity model.Entity) error {
	return f.write(logRecord{Op: opCreate, Block: block, Type: entity.Type, ID: entity.ID, Entity: entity})
}

func (f *FileDB) Update(block uint64, entity model.Entity) error {
	return f.write(logRecord{Op: opUpdate, Block: block, Type: entity.Type, ID: entity.ID, Entity: entity})
}

func (f *FileDB) Delete(typ, id string, block uint64) error {
	return f.write(logRecord{Op: opDelete, Block: block, Type: typ, ID: id})
}

func (f *FileDB) RevertCreateEntity(from uint64) error {
	return f.write(logRecord{Op: opRevertCreate, From: from})
}

func (f *FileDB) RevertDeleteEntity(from uint64) error {
	return f.write(logRecord{Op: opRevertDelete, From: from})
}

func (f *FileDB) HardDeleteAllEntitiesToBlock(types []string, toBlock uint64) error {
	return f.write(logRecord{Op: opHardDelete, From: toBlock, Types: types})
}

func (f *FileDB) write(rec logRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.appendLog(rec); err != nil {
		return fmt.Errorf("database: append log: %w", err)
	}
	f.apply(rec)
	return nil
}

func (f *FileDB) Close() error { return nil }
