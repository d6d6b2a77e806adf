// Package embedding turns catalog descriptions and queries into dense vectors.
package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/tansaku/pkg/utils"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Encode embeds texts and, when normalize is set, scales each vector to unit L2 norm.
// Returned vectors are copies the caller may keep. Every vector must have the
// embedder's declared dimension.
func Encode(ctx context.Context, e Embedder, texts []string, normalize bool) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	raw, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(raw) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(raw), len(texts))
	}
	out := make([][]float32, len(raw))
	for i, v := range raw {
		if len(v) != e.Dimensions() {
			return nil, fmt.Errorf("embedding %d has dimension %d, want %d", i, len(v), e.Dimensions())
		}
		out[i] = append([]float32(nil), v...)
		if normalize {
			utils.NormalizeL2(out[i])
		}
	}
	return out, nil
}

// EncodeOne is Encode for a single text.
func EncodeOne(ctx context.Context, e Embedder, text string, normalize bool) ([]float32, error) {
	vecs, err := Encode(ctx, e, []string{text}, normalize)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}
