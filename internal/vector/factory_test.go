package vector

import (
	"context"
	"testing"

	"github.com/hyperjump/tansaku/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.VectorConfig
		wantType string
		wantErr  bool
	}{
		{"memory", config.VectorConfig{IndexType: "memory", Metric: "cosine"}, "memory", false},
		{"default", config.VectorConfig{}, "memory", false},
		{"euclidean", config.VectorConfig{IndexType: "memory", Metric: "euclidean"}, "memory", false},
		{"unknown type", config.VectorConfig{IndexType: "annoy"}, "", true},
		{"unknown metric", config.VectorConfig{IndexType: "memory", Metric: "hamming"}, "", true},
		{"pgvector without dsn", config.VectorConfig{IndexType: "pgvector"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := New(&tt.cfg, 3)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer idx.Close()
			if idx.Type() != tt.wantType {
				t.Errorf("Type() = %s, want %s", idx.Type(), tt.wantType)
			}
			if err := idx.Upsert(context.Background(), []string{"a"}, [][]float32{{1, 0, 0}}, nil); err != nil {
				t.Fatalf("Upsert: %v", err)
			}
			if idx.Size() != 1 {
				t.Errorf("Size=%d, want 1", idx.Size())
			}
		})
	}
}

func TestIsFAISSAvailable(t *testing.T) {
	t.Logf("FAISS available: %v", IsFAISSAvailable())
}

func TestNew_FAISS(t *testing.T) {
	if !IsFAISSAvailable() {
		t.Skip("FAISS not available (build with -tags=faiss)")
	}
	idx, err := New(&config.VectorConfig{IndexType: "faiss", Metric: "cosine"}, 3)
	if err != nil {
		t.Fatalf("New(faiss): %v", err)
	}
	defer idx.Close()
	if idx.Type() != "faiss" {
		t.Errorf("Type() = %s", idx.Type())
	}
}
