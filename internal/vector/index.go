// Package vector provides the vector-store collaborators used for dense retrieval.
package vector

import (
	"context"
	"fmt"
)

// Metric is the similarity function an index is created with.
type Metric string

const (
	MetricCosine     Metric = "cosine"
	MetricDotProduct Metric = "dotproduct"
	MetricEuclidean  Metric = "euclidean"
)

// ParseMetric validates a configured metric name. Empty means cosine.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "", MetricCosine:
		return MetricCosine, nil
	case MetricDotProduct, MetricEuclidean:
		return Metric(s), nil
	default:
		return "", fmt.Errorf("unknown metric: %s (supported: cosine, dotproduct, euclidean)", s)
	}
}

// VectorIndex stores one vector per id with optional string metadata.
// Upsert replaces vectors for ids already present.
type VectorIndex interface {
	Upsert(ctx context.Context, ids []string, vectors [][]float32, metadata []map[string]string) error
	Query(ctx context.Context, vector []float32, k int) ([]*Match, error)
	Reset(ctx context.Context) error
	Save(path string) error
	Load(path string) error
	Size() int
	Type() string
	Close() error
}

// Match is a query hit. Score is a similarity: higher is closer for every metric.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

func checkUpsert(ids []string, vectors [][]float32, metadata []map[string]string, dimensions int) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	if metadata != nil && len(metadata) != len(ids) {
		return fmt.Errorf("ids and metadata length mismatch")
	}
	for _, v := range vectors {
		if len(v) != dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(v), dimensions)
		}
	}
	return nil
}

func metadataAt(metadata []map[string]string, i int) map[string]string {
	if metadata == nil {
		return nil
	}
	return copyMetadata(metadata[i])
}

func copyMetadata(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	m := make(map[string]string, len(src))
	for k, v := range src {
		m[k] = v
	}
	return m
}
