package database

import (
	"testing"

	"datafast-runtime/internal/model"
)

func newEntity(typ, id, owner string) model.Entity {
	e := model.Entity{Type: typ, ID: id}
	e.Set("id", model.NewString(id))
	if owner != "" {
		e.Set("owner", model.NewString(owner))
	}
	return e
}

func openTestDB(t *testing.T) *Database {
	t.Helper()
	fdb, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { fdb.Close() })
	return New(fdb, model.Schema{}, Config{MemoryEntries: 16})
}

func TestCreateThenLoad(t *testing.T) {
	db := openTestDB(t)
	e := newEntity("Token", "0x1", "alice")
	if err := db.Create(10, e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, ok, err := db.Load("Token", "0x1")
	if err != nil || !ok {
		t.Fatalf("Load: %v, ok=%v", err, ok)
	}
	if f, _ := got.Get("owner"); f.Str != "alice" {
		t.Fatalf("got owner %q", f.Str)
	}
}

func TestCreateRejectsMissingID(t *testing.T) {
	db := openTestDB(t)
	e := model.Entity{Type: "Token"}
	if err := db.Create(1, e); err == nil {
		t.Fatal("expected ErrSchema for id-less entity")
	}
}

func TestUpdateOverwritesLatest(t *testing.T) {
	db := openTestDB(t)
	e := newEntity("Token", "0x1", "alice")
	if err := db.Create(10, e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	e2 := newEntity("Token", "0x1", "bob")
	if err := db.Update(11, e2); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _, _ := db.Load("Token", "0x1")
	if f, _ := got.Get("owner"); f.Str != "bob" {
		t.Fatalf("got owner %q, want bob", f.Str)
	}
}

func TestDeleteThenLoadMisses(t *testing.T) {
	db := openTestDB(t)
	e := newEntity("Token", "0x1", "alice")
	db.Create(10, e)
	if err := db.Delete("Token", "0x1", 11); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, ok, err := db.Load("Token", "0x1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("expected miss after delete")
	}
}

// Exercises spec.md §8 scenario 5: create at block 10, revert to block 10
// (i.e. from=10) undoes the create, leaving the entity absent again.
func TestRevertCreateEntityIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	e := newEntity("Token", "0x1", "alice")
	if err := db.Create(10, e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := db.RevertToBlock(10); err != nil {
		t.Fatalf("RevertToBlock: %v", err)
	}
	_, ok, err := db.Load("Token", "0x1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("expected entity to be gone after revert")
	}
	// Reverting again from the same (now empty) point changes nothing.
	if err := db.RevertToBlock(10); err != nil {
		t.Fatalf("second RevertToBlock: %v", err)
	}
	if _, ok, _ := db.Load("Token", "0x1"); ok {
		t.Fatal("second revert resurrected the entity")
	}
}

func TestRevertCreateKeepsEarlierBlocks(t *testing.T) {
	db := openTestDB(t)
	db.Create(5, newEntity("Token", "0x1", "alice"))
	db.Update(10, newEntity("Token", "0x1", "bob"))
	if err := db.RevertToBlock(10); err != nil {
		t.Fatalf("RevertToBlock: %v", err)
	}
	got, ok, err := db.Load("Token", "0x1")
	if err != nil || !ok {
		t.Fatalf("Load after revert: %v, ok=%v", err, ok)
	}
	if f, _ := got.Get("owner"); f.Str != "alice" {
		t.Fatalf("got owner %q, want alice (pre-block-10 state)", f.Str)
	}
}

func TestRevertDeleteEntityRestoresRow(t *testing.T) {
	db := openTestDB(t)
	db.Create(5, newEntity("Token", "0x1", "alice"))
	db.Delete("Token", "0x1", 10)
	if _, ok, _ := db.Load("Token", "0x1"); ok {
		t.Fatal("expected miss before revert")
	}
	if err := db.RevertToBlock(10); err != nil {
		t.Fatalf("RevertToBlock: %v", err)
	}
	_, ok, err := db.Load("Token", "0x1")
	if err != nil || !ok {
		t.Fatalf("expected row restored after revert: err=%v ok=%v", err, ok)
	}
}

func TestLoadRelated(t *testing.T) {
	db := openTestDB(t)
	db.Create(1, newEntity("Token", "0x1", "alice"))
	db.Create(1, newEntity("Token", "0x2", "alice"))
	db.Create(1, newEntity("Token", "0x3", "bob"))

	owned, err := db.LoadRelated("Token", "owner", "alice")
	if err != nil {
		t.Fatalf("LoadRelated: %v", err)
	}
	if len(owned) != 2 {
		t.Fatalf("got %d related rows, want 2", len(owned))
	}
}

func TestLoadInBlockReturnsHistoricalVersion(t *testing.T) {
	db := openTestDB(t)
	db.Create(5, newEntity("Token", "0x1", "alice"))
	db.Update(10, newEntity("Token", "0x1", "bob"))

	got, ok, err := db.LoadInBlock("Token", "0x1", 5)
	if err != nil || !ok {
		t.Fatalf("LoadInBlock(5): err=%v ok=%v", err, ok)
	}
	if f, _ := got.Get("owner"); f.Str != "alice" {
		t.Fatalf("got owner %q, want alice at block 5", f.Str)
	}
}

func TestFinalizePrunesHistoryButKeepsCurrent(t *testing.T) {
	db := openTestDB(t)
	db.Create(1, newEntity("Token", "0x1", "alice"))
	db.Update(2, newEntity("Token", "0x1", "bob"))
	db.Update(3, newEntity("Token", "0x1", "carol"))

	if err := db.Finalize([]string{"Token"}, 3); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	got, ok, err := db.Load("Token", "0x1")
	if err != nil || !ok {
		t.Fatalf("Load after finalize: err=%v ok=%v", err, ok)
	}
	if f, _ := got.Get("owner"); f.Str != "carol" {
		t.Fatalf("got owner %q, want carol", f.Str)
	}
}

func TestReopenReplaysLog(t *testing.T) {
	dir := t.TempDir()
	fdb, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	db := New(fdb, model.Schema{}, Config{MemoryEntries: 16})
	db.Create(1, newEntity("Token", "0x1", "alice"))
	fdb.Close()

	fdb2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer fdb2.Close()
	db2 := New(fdb2, model.Schema{}, Config{MemoryEntries: 16})
	got, ok, err := db2.Load("Token", "0x1")
	if err != nil || !ok {
		t.Fatalf("Load after reopen: err=%v ok=%v", err, ok)
	}
	if f, _ := got.Get("owner"); f.Str != "alice" {
		t.Fatalf("got owner %q after reopen, want alice", f.Str)
	}
}
