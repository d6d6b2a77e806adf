package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/tansaku/pkg/utils"
)

func TestMockEmbedder(t *testing.T) {
	ctx := context.Background()
	e := NewMockEmbedder(64)
	a, _ := e.Embed(ctx, "Dell notebook 16GB RAM")
	b, _ := e.Embed(ctx, "dell NOTEBOOK, 16gb ram")
	c, _ := e.Embed(ctx, "apple macbook")
	if len(a) != 64 {
		t.Fatalf("dimension = %d", len(a))
	}
	if utils.Cosine(a, b) < 0.999 {
		t.Errorf("same words should embed identically, cosine %f", utils.Cosine(a, b))
	}
	if utils.Cosine(a, c) >= utils.Cosine(a, b) {
		t.Error("unrelated text should be less similar")
	}
	if NewMockEmbedder(0).Dimensions() != 384 {
		t.Error("default dimension should be 384")
	}
}

func TestMockEmbedder_canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMockEmbedder(8).Embed(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

type badEmbedder struct{ *MockEmbedder }

func (b badEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return [][]float32{{1, 2}}, nil
}

func TestEncode(t *testing.T) {
	ctx := context.Background()
	e := NewMockEmbedder(32)

	vecs, err := Encode(ctx, e, []string{"gaming laptop", "gaming gaming laptop"}, true)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range vecs {
		if n := utils.Norm(v); math.Abs(n-1) > 1e-5 {
			t.Errorf("vector %d norm = %f, want 1", i, n)
		}
	}

	raw, err := EncodeOne(ctx, e, "gaming gaming", false)
	if err != nil {
		t.Fatal(err)
	}
	if n := utils.Norm(raw); math.Abs(n-2) > 1e-5 {
		t.Errorf("unnormalized norm = %f, want 2", n)
	}

	if vecs, err := Encode(ctx, e, nil, true); err != nil || vecs != nil {
		t.Errorf("empty input: %v, %v", vecs, err)
	}

	if _, err := Encode(ctx, badEmbedder{NewMockEmbedder(8)}, []string{"a", "b"}, true); err == nil {
		t.Error("expected error for vector count mismatch")
	}
	if _, err := Encode(ctx, badEmbedder{NewMockEmbedder(8)}, []string{"a"}, true); err == nil {
		t.Error("expected error for dimension mismatch")
	}
}
