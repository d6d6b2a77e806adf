package rerank

import (
	"fmt"

	"github.com/hyperjump/tansaku/internal/config"
)

// New creates the reranker selected by cfg.Provider.
func New(cfg *config.RerankerConfig) (Reranker, error) {
	switch cfg.Provider {
	case "onnx":
		r, err := NewONNXReranker(cfg.ModelPath, cfg.MaxTokens)
		if err != nil {
			return nil, fmt.Errorf("failed to create onnx reranker: %w", err)
		}
		return r, nil
	case "http":
		r, err := NewHTTPReranker(cfg.Host, WithRateLimit(cfg.RateLimit))
		if err != nil {
			return nil, err
		}
		return r, nil
	case "lexical":
		return NewLexicalReranker(), nil
	default:
		return nil, fmt.Errorf("unsupported reranker provider: %s", cfg.Provider)
	}
}
