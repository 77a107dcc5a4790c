package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "collections.db"), nil)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	return sqliteStore
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	sqliteStore := newTestSQLiteStore(t)

	written := []testRecord{{ID: "a", Title: "first"}, {ID: "b", Title: "second"}}
	if err := sqliteStore.Save(context.Background(), "art", written); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	read := []testRecord{}
	if err := sqliteStore.Load(context.Background(), "art", &read); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(read) != 2 || read[0] != written[0] || read[1] != written[1] {
		t.Fatalf("round trip mismatch: got %+v", read)
	}
}

func TestSQLiteStoreLoadAbsentCollectionIsEmpty(t *testing.T) {
	sqliteStore := newTestSQLiteStore(t)

	read := []testRecord{}
	version, err := sqliteStore.LoadVersioned(context.Background(), "requests", &read)
	if err != nil {
		t.Fatalf("load of absent collection should not fail: %v", err)
	}
	if version != 0 {
		t.Fatalf("expected version 0 for absent collection, got %d", version)
	}
	if len(read) != 0 {
		t.Fatalf("expected empty collection, got %d records", len(read))
	}
}

func TestSQLiteStoreVersionIncrementsPerSave(t *testing.T) {
	sqliteStore := newTestSQLiteStore(t)

	for i := 0; i < 3; i++ {
		if err := sqliteStore.Save(context.Background(), "art", []testRecord{{ID: "a"}}); err != nil {
			t.Fatalf("save %d failed: %v", i, err)
		}
	}

	read := []testRecord{}
	version, err := sqliteStore.LoadVersioned(context.Background(), "art", &read)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if version != 3 {
		t.Fatalf("expected version 3 after three saves, got %d", version)
	}
}

func TestSQLiteStoreSaveVersionedDetectsConflict(t *testing.T) {
	sqliteStore := newTestSQLiteStore(t)

	if err := sqliteStore.SaveVersioned(context.Background(), "art", []testRecord{{ID: "a"}}, 0); err != nil {
		t.Fatalf("initial conditional save failed: %v", err)
	}

	read := []testRecord{}
	version, err := sqliteStore.LoadVersioned(context.Background(), "art", &read)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	// A concurrent writer advances the version underneath the first reader.
	if err := sqliteStore.Save(context.Background(), "art", []testRecord{{ID: "a"}, {ID: "b"}}); err != nil {
		t.Fatalf("interleaved save failed: %v", err)
	}

	err = sqliteStore.SaveVersioned(context.Background(), "art", append(read, testRecord{ID: "c"}), version)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	final := []testRecord{}
	if err := sqliteStore.Load(context.Background(), "art", &final); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(final) != 2 {
		t.Fatalf("conflicting write should not apply, got %+v", final)
	}
}

func TestSQLiteStoreSaveVersionedRejectsStaleCreate(t *testing.T) {
	sqliteStore := newTestSQLiteStore(t)

	err := sqliteStore.SaveVersioned(context.Background(), "art", []testRecord{{ID: "a"}}, 4)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict for unwritten collection, got %v", err)
	}
}

func TestFileAndSQLiteBackendsReadIdentically(t *testing.T) {
	fileStore, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	sqliteStore := newTestSQLiteStore(t)

	written := []testRecord{{ID: "a", Title: "shared"}, {ID: "b", Title: "contract"}}
	for name, backend := range map[string]Store{"file": fileStore, "sqlite": sqliteStore} {
		if err := backend.Save(context.Background(), "art", written); err != nil {
			t.Fatalf("%s save failed: %v", name, err)
		}
	}

	fromFile := []testRecord{}
	fromSQLite := []testRecord{}
	if err := fileStore.Load(context.Background(), "art", &fromFile); err != nil {
		t.Fatalf("file load failed: %v", err)
	}
	if err := sqliteStore.Load(context.Background(), "art", &fromSQLite); err != nil {
		t.Fatalf("sqlite load failed: %v", err)
	}
	if len(fromFile) != len(fromSQLite) {
		t.Fatalf("backend divergence: file=%d sqlite=%d", len(fromFile), len(fromSQLite))
	}
	for i := range fromFile {
		if fromFile[i] != fromSQLite[i] {
			t.Fatalf("record %d diverges: file=%+v sqlite=%+v", i, fromFile[i], fromSQLite[i])
		}
	}
}
