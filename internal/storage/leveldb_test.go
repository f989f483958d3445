package storage_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"chaincore/internal/storage"
)

func newDB(t *testing.T) *storage.LevelDB {
	t.Helper()
	db, err := storage.NewLevelDB(storage.Config{DataDir: filepath.Join(t.TempDir(), "chaindata")})
	if err != nil {
		t.Fatalf("NewLevelDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPutGetHas(t *testing.T) {
	db := newDB(t)

	if has, _ := db.Has([]byte("k")); has {
		t.Fatal("expected key to be absent before Put")
	}
	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte("v")) {
		t.Fatalf("expected v, got %s", got)
	}
	if has, _ := db.Has([]byte("k")); !has {
		t.Fatal("expected key to be present after Put")
	}
}

func TestDelete(t *testing.T) {
	db := newDB(t)
	db.Put([]byte("k"), []byte("v"))
	if err := db.Delete([]byte("k")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if has, _ := db.Has([]byte("k")); has {
		t.Fatal("expected key to be gone after Delete")
	}
}

func TestBatchAppliesAtomically(t *testing.T) {
	db := newDB(t)
	batch := db.NewBatch()
	batch.Put([]byte("a"), []byte("1"))
	batch.Put([]byte("b"), []byte("2"))
	batch.Delete([]byte("c"))

	if err := batch.Write(); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := db.Get([]byte("a"))
	if err != nil || !bytes.Equal(got, []byte("1")) {
		t.Fatalf("expected a=1, got %s err=%v", got, err)
	}
	got, err = db.Get([]byte("b"))
	if err != nil || !bytes.Equal(got, []byte("2")) {
		t.Fatalf("expected b=2, got %s err=%v", got, err)
	}
}
