package search

import (
	"context"
	"testing"

	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/specs"
)

func BenchmarkExtract(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = specs.Extract("lenovo gaming laptop with 16gb ram, 512gb ssd and nvidia graphics on windows")
	}
}

func BenchmarkEngineSearch(b *testing.B) {
	env := newTestEnv(b, true)
	engine := env.engine(nil)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = engine.Search(ctx, &models.SearchQuery{Query: "dell gaming laptop with 16gb ram"})
	}
}
