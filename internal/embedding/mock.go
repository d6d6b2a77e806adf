package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"sync/atomic"
)

// MockEmbedder is a deterministic embedder for tests. It hashes each lowercased word
// into one of its dimensions (feature hashing), so texts sharing words are close under
// cosine similarity. Vectors are not normalized.
type MockEmbedder struct {
	dimensions int
	calls      atomic.Int64
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns the hashed bag-of-words vector for text.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.calls.Add(1)
	emb := make([]float32, e.dimensions)
	for _, w := range Words(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.ToLower(w)))
		emb[int(h.Sum32()%uint32(e.dimensions))]++
	}
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Calls returns how many texts were embedded.
func (e *MockEmbedder) Calls() int {
	return int(e.calls.Load())
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
