package indexer

import (
	"context"
	"fmt"

	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/storage"
)

// StateUnknown is reported by Status when no catalog was given to compare against.
const StateUnknown = "unknown"

// Status summarizes the persisted index.
type Status struct {
	State           string    `json:"state"`
	Records         int       `json:"records"`
	Vectors         int       `json:"vectors"`
	VectorIndexType string    `json:"vector_index_type"`
	Manifest        *Manifest `json:"manifest,omitempty"`
	DiskUsageBytes  int64     `json:"disk_usage_bytes"`
}

// Status reports the index state against records (StateUnknown when records is nil),
// record and vector counts, the manifest and the disk footprint. It never writes.
func (b *Builder) Status(ctx context.Context, records []*models.Record) (*Status, error) {
	st := &Status{
		State:           StateUnknown,
		Vectors:         b.vectors.Size(),
		VectorIndexType: b.vectors.Type(),
	}
	if records != nil {
		state, err := b.State(ctx, records)
		if err != nil {
			return nil, err
		}
		st.State = state.String()
	}
	exists, err := b.docs.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check doc store: %w", err)
	}
	if exists {
		if st.Records, err = b.docs.Count(ctx); err != nil {
			return nil, fmt.Errorf("count records: %w", err)
		}
	}
	if m, err := ReadManifest(b.indexDir); err == nil {
		st.Manifest = m
	}

	paths := append([]string{ManifestPath(b.indexDir)}, b.docs.Paths()...)
	if b.fileBacked() {
		paths = append(paths, b.vectorPath, b.vectorPath+".faiss", b.vectorPath+".idmap")
	}
	if st.DiskUsageBytes, err = storage.DiskUsageBytes(paths...); err != nil {
		return nil, fmt.Errorf("disk usage: %w", err)
	}
	return st, nil
}
