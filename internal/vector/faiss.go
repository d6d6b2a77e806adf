//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/index_factory_c.h>
#include <faiss/c_api/index_io_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"unsafe"

	"github.com/hyperjump/tansaku/internal/storage"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// FAISSIndex is a flat FAISS index. Cosine normalizes vectors and searches by inner
// product; euclidean uses an L2 index. Upserting an existing id orphans its old slot.
type FAISSIndex struct {
	index      *C.FaissIndex
	dimensions int
	metric     Metric
	idToIntID  map[string]int64
	intIDToID  map[int64]string
	metadata   map[string]map[string]string
	nextID     int64
	mu         sync.RWMutex
}

// NewFAISSIndex creates an empty FAISS index.
func NewFAISSIndex(dimensions int, metric Metric) (*FAISSIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	m, err := ParseMetric(string(metric))
	if err != nil {
		return nil, err
	}
	f := &FAISSIndex{dimensions: dimensions, metric: m}
	if err := f.create(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FAISSIndex) create() error {
	desc := C.CString("Flat")
	defer C.free(unsafe.Pointer(desc))
	faissMetric := C.FaissMetricType(C.METRIC_INNER_PRODUCT)
	if f.metric == MetricEuclidean {
		faissMetric = C.FaissMetricType(C.METRIC_L2)
	}
	var index *C.FaissIndex
	if ret := C.faiss_index_factory(&index, C.int(f.dimensions), desc, faissMetric); ret != 0 {
		return fmt.Errorf("failed to create FAISS index: %s", faissLastError())
	}
	f.index = index
	f.idToIntID = make(map[string]int64)
	f.intIDToID = make(map[int64]string)
	f.metadata = make(map[string]map[string]string)
	f.nextID = 0
	return nil
}

func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

func (f *FAISSIndex) prepare(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	if f.metric == MetricCosine {
		utils.NormalizeL2(out)
	}
	return out
}

// Upsert adds vectors; ids already present are remapped to the new slot.
func (f *FAISSIndex) Upsert(ctx context.Context, ids []string, vectors [][]float32, metadata []map[string]string) error {
	if err := checkUpsert(ids, vectors, metadata, f.dimensions); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(vectors)
	flat := make([]float32, 0, n*f.dimensions)
	for _, vec := range vectors {
		flat = append(flat, f.prepare(vec)...)
	}
	if ret := C.faiss_Index_add(f.index, C.idx_t(n), (*C.float)(unsafe.Pointer(&flat[0]))); ret != 0 {
		return fmt.Errorf("failed to add vectors to FAISS index: %s", faissLastError())
	}

	for i, id := range ids {
		if old, ok := f.idToIntID[id]; ok {
			delete(f.intIDToID, old)
		}
		f.idToIntID[id] = f.nextID
		f.intIDToID[f.nextID] = id
		f.metadata[id] = metadataAt(metadata, i)
		f.nextID++
	}
	return nil
}

// Query returns the k closest live vectors, best first.
func (f *FAISSIndex) Query(ctx context.Context, vector []float32, k int) ([]*Match, error) {
	if len(vector) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(vector), f.dimensions)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	ntotal := int(C.faiss_Index_ntotal(f.index))
	if k <= 0 || ntotal == 0 {
		return nil, nil
	}
	// Orphaned slots can occupy result positions, so search the whole index when needed.
	want := k
	if ntotal > len(f.idToIntID) {
		want = ntotal
	}
	if want > ntotal {
		want = ntotal
	}

	q := f.prepare(vector)
	distances := make([]float32, want)
	labels := make([]int64, want)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&q[0])),
		C.idx_t(want),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}

	results := make([]*Match, 0, k)
	for i := 0; i < want && len(results) < k; i++ {
		id, ok := f.intIDToID[labels[i]]
		if !ok {
			continue
		}
		score := float64(distances[i])
		if f.metric == MetricEuclidean {
			// FAISS reports squared L2 distances.
			score = 1 / (1 + math.Sqrt(score))
		}
		results = append(results, &Match{ID: id, Score: score, Metadata: copyMetadata(f.metadata[id])})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, nil
}

// Reset frees the native index and starts over empty.
func (f *FAISSIndex) Reset(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return f.create()
}

type faissState struct {
	Metric    Metric
	IDToIntID map[string]int64
	IntIDToID map[int64]string
	Metadata  map[string]map[string]string
	NextID    int64
}

// Save writes path+".faiss" and the id mapping to path+".idmap".
func (f *FAISSIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	cPath := C.CString(path + ".faiss")
	defer C.free(unsafe.Pointer(cPath))
	if ret := C.faiss_write_index_fname(f.index, cPath); ret != 0 {
		return fmt.Errorf("failed to save FAISS index: %s", faissLastError())
	}

	state := faissState{
		Metric:    f.metric,
		IDToIntID: f.idToIntID,
		IntIDToID: f.intIDToID,
		Metadata:  f.metadata,
		NextID:    f.nextID,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return fmt.Errorf("encode id map: %w", err)
	}
	return storage.WriteFileAtomic(path+".idmap", buf.Bytes())
}

// Load reads an index written by Save. Missing files leave the index unchanged.
func (f *FAISSIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	faissPath := path + ".faiss"
	if _, err := os.Stat(faissPath); os.IsNotExist(err) {
		return nil
	}

	mapFile, err := os.Open(path + ".idmap")
	if err != nil {
		return fmt.Errorf("open id map file: %w", err)
	}
	defer mapFile.Close()
	var state faissState
	if err := gob.NewDecoder(mapFile).Decode(&state); err != nil {
		return fmt.Errorf("decode id map: %w", err)
	}
	if state.Metric != f.metric {
		return fmt.Errorf("metric mismatch: file has %s, index expects %s", state.Metric, f.metric)
	}

	cPath := C.CString(faissPath)
	defer C.free(unsafe.Pointer(cPath))
	var loaded *C.FaissIndex
	if ret := C.faiss_read_index_fname(cPath, 0, &loaded); ret != 0 {
		return fmt.Errorf("failed to load FAISS index: %s", faissLastError())
	}
	if d := int(C.faiss_Index_d(loaded)); d != f.dimensions {
		C.faiss_Index_free(loaded)
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", d, f.dimensions)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
	}
	f.index = loaded
	f.idToIntID = state.IDToIntID
	f.intIDToID = state.IntIDToID
	f.metadata = state.Metadata
	f.nextID = state.NextID
	return nil
}

// Size returns the number of live ids.
func (f *FAISSIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.idToIntID)
}

// Close frees the native index.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}
