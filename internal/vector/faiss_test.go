//go:build faiss && cgo
// +build faiss,cgo

package vector

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFAISSIndex_UpsertQuery(t *testing.T) {
	idx, err := NewFAISSIndex(3, MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{{1, 0, 0}, {0.9, 0.1, 0}, {0, 1, 0}}
	meta := []map[string]string{{"text": "a"}, {"text": "b"}, {"text": "c"}}
	if err := idx.Upsert(ctx, []string{"a", "b", "c"}, vecs, meta); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d, want 3", idx.Size())
	}
	results, err := idx.Query(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].ID != "a" || results[0].Metadata["text"] != "a" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestFAISSIndex_UpsertReplaces(t *testing.T) {
	idx, err := NewFAISSIndex(2, MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	_ = idx.Upsert(ctx, []string{"x", "y"}, [][]float32{{1, 0}, {0, 1}}, nil)
	_ = idx.Upsert(ctx, []string{"x"}, [][]float32{{0, 1}}, nil)
	if idx.Size() != 2 {
		t.Errorf("Size=%d, want 2", idx.Size())
	}
	results, err := idx.Query(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 live results, got %d", len(results))
	}
}

func TestFAISSIndex_Euclidean(t *testing.T) {
	idx, err := NewFAISSIndex(2, MetricEuclidean)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()
	_ = idx.Upsert(ctx, []string{"long", "short"}, [][]float32{{2, 0}, {0.5, 0.5}}, nil)
	results, err := idx.Query(ctx, []float32{0.6, 0.4}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "short" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestFAISSIndex_ResetSaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "idx")

	idx, err := NewFAISSIndex(3, MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	vecs := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	if err := idx.Upsert(ctx, []string{"a", "b", "c"}, vecs, nil); err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for _, suffix := range []string{".faiss", ".idmap"} {
		if _, err := os.Stat(path + suffix); err != nil {
			t.Fatalf("%s file not created: %v", suffix, err)
		}
	}
	if err := idx.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 0 {
		t.Errorf("Size after Reset = %d", idx.Size())
	}

	idx2, err := NewFAISSIndex(3, MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	defer idx2.Close()
	if err := idx2.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	results, err := idx2.Query(ctx, []float32{0, 0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "c" {
		t.Errorf("Query after Load: %+v", results)
	}
}

func TestFAISSIndex_Errors(t *testing.T) {
	if _, err := NewFAISSIndex(0, MetricCosine); err == nil {
		t.Error("expected error for zero dimension")
	}
	idx, err := NewFAISSIndex(3, MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()
	if err := idx.Upsert(ctx, []string{"a"}, [][]float32{{1, 0}}, nil); err == nil {
		t.Error("expected error for dimension mismatch on Upsert")
	}
	if _, err := idx.Query(ctx, []float32{1, 0}, 1); err == nil {
		t.Error("expected error for dimension mismatch on Query")
	}
	if err := idx.Load("/nonexistent/path/index"); err != nil {
		t.Errorf("Load missing file should not error: %v", err)
	}
}
