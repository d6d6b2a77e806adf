package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/tansaku/internal/models"
)

func sampleRecords() []*models.Record {
	return []*models.Record{
		{ID: "0", Fields: map[string]string{"Company": "Dell", "Ram": "16"}, Text: "A Dell Notebook"},
		{ID: "1", Fields: map[string]string{"Company": "HP", "Ram": "8"}, Text: "A HP Ultrabook"},
		{ID: "2", Fields: map[string]string{"Company": "Apple", "Ram": "8"}, Text: "A Apple Ultrabook"},
	}
}

// testDocStore runs the DocStore contract against a fresh store.
func testDocStore(t *testing.T, store DocStore) {
	t.Helper()
	ctx := context.Background()

	ok, err := store.Exists(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("new store should not exist")
	}
	if n, err := store.Count(ctx); err != nil || n != 0 {
		t.Fatalf("Count() = %d, %v; want 0", n, err)
	}
	if _, err := store.Get(ctx, "0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get on empty store: got %v, want ErrNotFound", err)
	}

	if err := store.Replace(ctx, sampleRecords()); err != nil {
		t.Fatal(err)
	}
	if ok, _ := store.Exists(ctx); !ok {
		t.Fatal("store should exist after Replace")
	}

	got, err := store.Get(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Field("Company") != "HP" || got.Text != "A HP Ultrabook" {
		t.Errorf("Get(1) = %+v", got)
	}
	if _, ok := got.Fields["text"]; ok {
		t.Error("text should not leak into fields")
	}

	many, err := store.GetMany(ctx, []string{"0", "2", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if len(many) != 2 || many["0"] == nil || many["2"] == nil {
		t.Errorf("GetMany = %+v", many)
	}

	list, err := store.List(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "1" || list[1].ID != "2" {
		t.Errorf("List(1, 10) = %+v", list)
	}

	// Replace swaps the whole snapshot.
	if err := store.Replace(ctx, sampleRecords()[:1]); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Errorf("Count() after replace = %d, want 1", n)
	}
	if _, err := store.Get(ctx, "2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("old record should be gone, got %v", err)
	}

	// An empty snapshot still exists.
	if err := store.Replace(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if ok, _ := store.Exists(ctx); !ok {
		t.Error("empty snapshot should still exist")
	}
}

func TestSQLiteDocStore(t *testing.T) {
	store, err := NewSQLiteDocStore(filepath.Join(t.TempDir(), "db", "records.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	testDocStore(t, store)
}

func TestSQLiteDocStore_reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	ctx := context.Background()
	store, err := NewSQLiteDocStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Replace(ctx, sampleRecords()); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store, err = NewSQLiteDocStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if n, _ := store.Count(ctx); n != 3 {
		t.Errorf("Count() after reopen = %d, want 3", n)
	}
}

func TestNewDocStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDocStore("json", dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*JSONDocStore); !ok {
		t.Errorf("json backend: got %T", s)
	}
	s, err = NewDocStore("sqlite", dir, filepath.Join(dir, "r.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, ok := s.(*SQLiteDocStore); !ok {
		t.Errorf("sqlite backend: got %T", s)
	}
	if _, err := NewDocStore("redis", dir, ""); err == nil {
		t.Error("expected error for unknown backend")
	}
}
