// Package storage persists the catalog doc store: the id -> record snapshot that the
// search filter reads and the build replaces.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/tansaku/internal/models"
)

// ErrNotFound is returned when a record id is not in the doc store.
var ErrNotFound = errors.New("record not found")

// DocStore holds one snapshot of the catalog. The snapshot is only ever replaced whole.
type DocStore interface {
	// Exists reports whether a snapshot has been persisted.
	Exists(ctx context.Context) (bool, error)
	// Replace atomically swaps the persisted snapshot for records.
	Replace(ctx context.Context, records []*models.Record) error
	// Get returns one record or ErrNotFound.
	Get(ctx context.Context, id string) (*models.Record, error)
	// GetMany returns the records found among ids; missing ids are left out.
	GetMany(ctx context.Context, ids []string) (map[string]*models.Record, error)
	// List returns records in catalog order, paged.
	List(ctx context.Context, offset, limit int) ([]*models.Record, error)
	Count(ctx context.Context) (int, error)
	// Paths lists files backing the store, for disk usage reporting.
	Paths() []string
	Close() error
}
