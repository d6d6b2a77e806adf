package vector

import (
	"fmt"

	"github.com/hyperjump/tansaku/internal/config"
)

// IndexType names a vector index implementation.
type IndexType string

const (
	// IndexTypeMemory is brute force over an in-memory slice, persisted to one file.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS requires building with -tags=faiss and the FAISS C library.
	IndexTypeFAISS IndexType = "faiss"
	// IndexTypePgVector stores vectors in Postgres with the pgvector extension.
	IndexTypePgVector IndexType = "pgvector"
)

// New creates the vector index selected by cfg.IndexType with the given dimension.
func New(cfg *config.VectorConfig, dimensions int) (VectorIndex, error) {
	metric, err := ParseMetric(cfg.Metric)
	if err != nil {
		return nil, err
	}
	switch IndexType(cfg.IndexType) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(dimensions, metric)
	case IndexTypeFAISS:
		idx, err := NewFAISSIndex(dimensions, metric)
		if err != nil {
			return nil, err
		}
		return idx, nil
	case IndexTypePgVector:
		idx, err := NewPgVectorIndex(cfg.DSN, cfg.IndexName, dimensions, metric)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, faiss, pgvector)", cfg.IndexType)
	}
}

// IsFAISSAvailable reports whether FAISS support is compiled in.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1, MetricCosine)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
