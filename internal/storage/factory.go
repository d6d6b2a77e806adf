package storage

import (
	"fmt"
)

// NewDocStore creates the doc store backend by name ("json" or "sqlite").
func NewDocStore(backend, indexDir, databasePath string) (DocStore, error) {
	switch backend {
	case "", "json":
		return NewJSONDocStore(indexDir), nil
	case "sqlite":
		return NewSQLiteDocStore(databasePath)
	default:
		return nil, fmt.Errorf("unsupported doc store: %s", backend)
	}
}
