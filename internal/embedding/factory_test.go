package embedding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperjump/tansaku/internal/config"
)

func TestNew(t *testing.T) {
	e, err := New(&config.EmbeddingConfig{Provider: "mock", Dimensions: 12, CacheSize: 5})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*CachedEmbedder); !ok {
		t.Errorf("cache_size > 0 should wrap in CachedEmbedder, got %T", e)
	}
	if e.Dimensions() != 12 {
		t.Errorf("Dimensions() = %d", e.Dimensions())
	}

	e, err = New(&config.EmbeddingConfig{Provider: "mock", Dimensions: 12})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*MockEmbedder); !ok {
		t.Errorf("got %T, want *MockEmbedder", e)
	}

	if _, err := New(&config.EmbeddingConfig{Provider: "word2vec"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[` +
			`{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]},` +
			`{"object":"embedding","index":1,"embedding":[0.4,0.5,0.6]}],` +
			`"model":"test","usage":{"prompt_tokens":2,"total_tokens":2}}`))
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(srv.URL, "test", 3)
	if err != nil {
		t.Fatal(err)
	}
	vecs, err := e.EmbedBatch(context.Background(), []string{"dell laptop", "hp notebook"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 || len(vecs[1]) != 3 || vecs[1][0] != 0.4 {
		t.Errorf("vectors = %v", vecs)
	}
}
