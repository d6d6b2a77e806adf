package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/hyperjump/tansaku/internal/models"
)

// DocStoreFile is the JSON doc store file name inside the index directory.
const DocStoreFile = "doc_store.json"

// textKey holds the description next to the catalog fields in the JSON file.
const textKey = "text"

// JSONDocStore keeps the snapshot as one JSON object mapping id to fields plus "text".
// The file is loaded lazily and reloaded when it changes on disk, so a build run from
// another process becomes visible without a restart.
type JSONDocStore struct {
	path string

	mu      sync.RWMutex
	records map[string]*models.Record
	order   []string
	modTime time.Time
	loaded  bool
}

// NewJSONDocStore returns a store backed by dir/doc_store.json. The directory is created
// on first write.
func NewJSONDocStore(dir string) *JSONDocStore {
	return &JSONDocStore{path: filepath.Join(dir, DocStoreFile)}
}

// Exists reports whether the doc store file is present.
func (s *JSONDocStore) Exists(ctx context.Context) (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat doc store: %w", err)
}

// Replace writes the snapshot to a temp file and renames it over the old one.
func (s *JSONDocStore) Replace(ctx context.Context, records []*models.Record) error {
	doc := make(map[string]map[string]string, len(records))
	for _, r := range records {
		fields := make(map[string]string, len(r.Fields)+1)
		for k, v := range r.Fields {
			fields[k] = v
		}
		fields[textKey] = r.Text
		doc[r.ID] = fields
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal doc store: %w", err)
	}
	if err := WriteFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("write doc store: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setSnapshot(records)
	if info, err := os.Stat(s.path); err == nil {
		s.modTime = info.ModTime()
	}
	return nil
}

// Get returns the record with id.
func (s *JSONDocStore) Get(ctx context.Context, id string) (*models.Record, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, nil
}

// GetMany returns the records found among ids.
func (s *JSONDocStore) GetMany(ctx context.Context, ids []string) (map[string]*models.Record, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.Record, len(ids))
	for _, id := range ids {
		if r, ok := s.records[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

// List returns records in catalog order.
func (s *JSONDocStore) List(ctx context.Context, offset, limit int) ([]*models.Record, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if offset < 0 {
		offset = 0
	}
	if offset >= len(s.order) {
		return nil, nil
	}
	end := len(s.order)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]*models.Record, 0, end-offset)
	for _, id := range s.order[offset:end] {
		out = append(out, s.records[id])
	}
	return out, nil
}

// Count returns the number of records.
func (s *JSONDocStore) Count(ctx context.Context) (int, error) {
	if err := s.ensureLoaded(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Paths returns the doc store file.
func (s *JSONDocStore) Paths() []string {
	return []string{s.path}
}

// Close is a no-op.
func (s *JSONDocStore) Close() error {
	return nil
}

// ensureLoaded reads the file when it was never loaded or changed since the last load.
// A missing file yields an empty snapshot.
func (s *JSONDocStore) ensureLoaded() error {
	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.setSnapshot(nil)
		s.modTime = time.Time{}
		s.loaded = true
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat doc store: %w", err)
	}

	s.mu.RLock()
	current := s.loaded && info.ModTime().Equal(s.modTime)
	s.mu.RUnlock()
	if current {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read doc store: %w", err)
	}
	var doc map[string]map[string]string
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse doc store: %w", err)
	}
	records := make([]*models.Record, 0, len(doc))
	for id, fields := range doc {
		text := fields[textKey]
		delete(fields, textKey)
		records = append(records, &models.Record{ID: id, Fields: fields, Text: text})
	}
	sortRecords(records)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setSnapshot(records)
	s.modTime = info.ModTime()
	return nil
}

// setSnapshot must be called with mu held.
func (s *JSONDocStore) setSnapshot(records []*models.Record) {
	s.records = make(map[string]*models.Record, len(records))
	s.order = make([]string, 0, len(records))
	for _, r := range records {
		s.records[r.ID] = r
		s.order = append(s.order, r.ID)
	}
	s.loaded = true
}

// sortRecords orders numeric ids numerically, then the rest lexically.
func sortRecords(records []*models.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, errA := strconv.Atoi(records[i].ID)
		b, errB := strconv.Atoi(records[j].ID)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return records[i].ID < records[j].ID
	})
}

// WriteFileAtomic writes data to a temp file next to path and renames it into place.
func WriteFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
