package vector

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/hyperjump/tansaku/internal/storage"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// MemoryIndex is an in-memory brute-force index persisted to a single file.
type MemoryIndex struct {
	dimensions int
	metric     Metric
	ids        []string
	vectors    [][]float32
	metadata   []map[string]string
	pos        map[string]int
	mu         sync.RWMutex
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex(dimensions int, metric Metric) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	m, err := ParseMetric(string(metric))
	if err != nil {
		return nil, err
	}
	return &MemoryIndex{
		dimensions: dimensions,
		metric:     m,
		pos:        make(map[string]int),
	}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Upsert inserts new ids in input order and overwrites existing ones in place.
func (m *MemoryIndex) Upsert(ctx context.Context, ids []string, vectors [][]float32, metadata []map[string]string) error {
	if err := checkUpsert(ids, vectors, metadata, m.dimensions); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		meta := metadataAt(metadata, i)
		if p, ok := m.pos[id]; ok {
			m.vectors[p] = vec
			m.metadata[p] = meta
			continue
		}
		m.pos[id] = len(m.ids)
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, vec)
		m.metadata = append(m.metadata, meta)
	}
	return nil
}

// Query returns the k closest vectors, best first. Ties keep insertion order.
func (m *MemoryIndex) Query(ctx context.Context, vector []float32, k int) ([]*Match, error) {
	if len(vector) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(vector), m.dimensions)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.ids) == 0 {
		return nil, nil
	}
	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(m.ids))
	for i, vec := range m.vectors {
		scores[i] = scored{idx: i, score: similarity(m.metric, vector, vec)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if k > len(scores) {
		k = len(scores)
	}
	result := make([]*Match, k)
	for i := 0; i < k; i++ {
		s := scores[i]
		result[i] = &Match{ID: m.ids[s.idx], Score: s.score, Metadata: metadataAt(m.metadata, s.idx)}
	}
	return result, nil
}

func similarity(metric Metric, a, b []float32) float64 {
	switch metric {
	case MetricDotProduct:
		return utils.Dot(a, b)
	case MetricEuclidean:
		return 1 / (1 + utils.Euclidean(a, b))
	default:
		return utils.Cosine(a, b)
	}
}

// Reset drops every vector.
func (m *MemoryIndex) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = nil
	m.vectors = nil
	m.metadata = nil
	m.pos = make(map[string]int)
	return nil
}

// Save writes the index to path atomically. Format: dimension (4), n (4), then per
// vector: idLen (4), id, metaLen (4), metadata JSON, vector (dimension*4 bytes).
func (m *MemoryIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint32(m.dimensions))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(m.ids)))
	for i, id := range m.ids {
		meta, err := json.Marshal(m.metadata[i])
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", id, err)
		}
		writeBytes(&buf, []byte(id))
		writeBytes(&buf, meta)
		buf.Write(float32SliceToBytes(m.vectors[i]))
	}
	if err := storage.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write index file: %w", err)
	}
	return nil
}

// Load replaces the in-memory contents with the file at path. Dimensions must match.
// A missing file leaves the index unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, m.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}

	ids := make([]string, 0, n)
	vectors := make([][]float32, 0, n)
	metadata := make([]map[string]string, 0, n)
	pos := make(map[string]int, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		id, err := readBytes(f)
		if err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		rawMeta, err := readBytes(f)
		if err != nil {
			return fmt.Errorf("read metadata: %w", err)
		}
		var meta map[string]string
		if err := json.Unmarshal(rawMeta, &meta); err != nil {
			return fmt.Errorf("decode metadata: %w", err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		pos[string(id)] = len(ids)
		ids = append(ids, string(id))
		vectors = append(vectors, bytesToFloat32Slice(buf))
		metadata = append(metadata, meta)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids, m.vectors, m.metadata, m.pos = ids, vectors, metadata, pos
	return nil
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(b)))
	buf.Write(b)
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
