// Package indexer builds the persisted catalog index and decides whether it is fresh.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/metrics"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/storage"
	"github.com/hyperjump/tansaku/internal/vector"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// ErrMissingBuildInput is returned when Build or State is called without a catalog.
var ErrMissingBuildInput = errors.New("catalog records are required to build the index")

// LockFile guards rebuilds across processes.
const LockFile = ".build.lock"

// MetadataText is the vector metadata key holding the record description.
const MetadataText = "text"

// State is the freshness of the persisted index relative to a catalog and config.
type State int

const (
	Uninitialized State = iota
	Stale
	Fresh
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Stale:
		return "stale"
	case Fresh:
		return "fresh"
	default:
		return "unknown"
	}
}

// BuildResult describes one Build call.
type BuildResult struct {
	Skipped  bool
	Records  int
	Manifest *Manifest
	Duration time.Duration
}

// Builder embeds the catalog, fills the vector index, replaces the doc store and writes
// the manifest. Builds are serialized in-process by a mutex and across processes by a
// lock file in the index directory. Readers that must not observe a half-swapped index
// hold RLock while they query the vector index and doc store.
type Builder struct {
	docs       storage.DocStore
	embedder   embedding.Embedder
	vectors    vector.VectorIndex
	cfg        *config.Config
	indexDir   string
	vectorPath string
	batchSize  int
	workers    int
	normalize  bool
	lockWait   time.Duration
	logger     *zap.Logger
	metrics    *metrics.Metrics
	mu         sync.Mutex
	swap       sync.RWMutex
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets a logger for build progress.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// WithMetrics records build outcomes.
func WithMetrics(m *metrics.Metrics) BuilderOption {
	return func(b *Builder) { b.metrics = m }
}

// WithWorkers sets how many embedding batches run concurrently (default 4).
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithLockWait bounds how long Build waits for another process's build (default 30s).
func WithLockWait(d time.Duration) BuilderOption {
	return func(b *Builder) { b.lockWait = d }
}

// NewBuilder creates a builder over the given collaborators.
func NewBuilder(
	docs storage.DocStore,
	embedder embedding.Embedder,
	vectors vector.VectorIndex,
	cfg *config.Config,
	opts ...BuilderOption,
) *Builder {
	b := &Builder{
		docs:       docs,
		embedder:   embedder,
		vectors:    vectors,
		cfg:        cfg,
		indexDir:   cfg.Storage.IndexDir,
		vectorPath: cfg.Storage.VectorIndexPath,
		batchSize:  cfg.Vector.BatchSize,
		workers:    4,
		normalize:  cfg.Embedding.NormalizeOrDefault(),
		lockWait:   30 * time.Second,
		logger:     zap.NewNop(),
	}
	if b.batchSize <= 0 {
		b.batchSize = 100
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	return b
}

// RLock blocks while a rebuild is replacing the vector index and doc store.
func (b *Builder) RLock() { b.swap.RLock() }

// RUnlock releases a read lock taken with RLock.
func (b *Builder) RUnlock() { b.swap.RUnlock() }

// Manifest returns the persisted manifest, or nil when there is none.
func (b *Builder) Manifest() (*Manifest, error) {
	return ReadManifest(b.indexDir)
}

// State classifies the persisted index against records and the current config.
// It never writes.
func (b *Builder) State(ctx context.Context, records []*models.Record) (State, error) {
	if records == nil {
		return Uninitialized, ErrMissingBuildInput
	}
	exists, err := b.docs.Exists(ctx)
	if err != nil {
		return Uninitialized, fmt.Errorf("check doc store: %w", err)
	}
	if !exists {
		return Uninitialized, nil
	}
	m, err := ReadManifest(b.indexDir)
	if err != nil {
		// An unreadable manifest is treated like a missing one.
		b.logger.Warn("ignoring unreadable manifest", zap.Error(err))
		return Stale, nil
	}
	if !m.Matches(DataFingerprint(records), ConfigFingerprint(b.cfg)) {
		return Stale, nil
	}
	if n := b.vectorCount(); n >= 0 && n != m.Records {
		b.logger.Warn("vector index does not match manifest",
			zap.Int("vectors", n), zap.Int("records", m.Records))
		return Stale, nil
	}
	return Fresh, nil
}

// vectorCount is the size of an in-process vector index, or -1 for remote stores whose
// contents outlive the process.
func (b *Builder) vectorCount() int {
	switch vector.IndexType(b.vectors.Type()) {
	case vector.IndexTypeMemory, vector.IndexTypeFAISS:
		return b.vectors.Size()
	default:
		return -1
	}
}

// IsFresh reports whether State is Fresh.
func (b *Builder) IsFresh(ctx context.Context, records []*models.Record) (bool, error) {
	s, err := b.State(ctx, records)
	if err != nil {
		return false, err
	}
	return s == Fresh, nil
}

// Build rebuilds the index from records unless it is already fresh and force is false,
// in which case nothing is written. The manifest is removed first and written last, so
// a failed build leaves the index stale.
func (b *Builder) Build(ctx context.Context, records []*models.Record, force bool) (*BuildResult, error) {
	if records == nil {
		return nil, ErrMissingBuildInput
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	state, err := b.State(ctx, records)
	if err != nil {
		b.metrics.ObserveBuild(metrics.OutcomeError, time.Since(start), 0)
		return nil, err
	}
	if state == Fresh && !force {
		b.logger.Info("index is fresh, skipping build", zap.Int("records", len(records)))
		b.metrics.ObserveBuild(metrics.OutcomeSkipped, time.Since(start), len(records))
		m, _ := ReadManifest(b.indexDir)
		return &BuildResult{Skipped: true, Records: len(records), Manifest: m, Duration: time.Since(start)}, nil
	}

	unlock, err := b.lock(ctx)
	if err != nil {
		b.metrics.ObserveBuild(metrics.OutcomeError, time.Since(start), 0)
		return nil, err
	}
	defer unlock()

	b.logger.Info("building index",
		zap.String("state", state.String()),
		zap.Bool("force", force),
		zap.Int("records", len(records)),
	)
	m, err := b.rebuild(ctx, records)
	if err != nil {
		b.metrics.ObserveBuild(metrics.OutcomeError, time.Since(start), 0)
		b.logger.Error("index build failed", zap.Error(err))
		return nil, err
	}
	elapsed := time.Since(start)
	b.metrics.ObserveBuild(metrics.OutcomeOK, elapsed, len(records))
	b.logger.Info("index built",
		zap.String("build_id", m.BuildID),
		zap.Int("records", m.Records),
		zap.Duration("duration", elapsed),
	)
	return &BuildResult{Records: len(records), Manifest: m, Duration: elapsed}, nil
}

func (b *Builder) lock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(b.indexDir, 0755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	l := flock.New(filepath.Join(b.indexDir, LockFile))
	lockCtx, cancel := context.WithTimeout(ctx, b.lockWait)
	defer cancel()
	locked, err := l.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("acquire build lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another build is in progress (lock: %s)", l.Path())
	}
	return func() { _ = l.Unlock() }, nil
}

func (b *Builder) rebuild(ctx context.Context, records []*models.Record) (*Manifest, error) {
	if err := RemoveManifest(b.indexDir); err != nil {
		return nil, err
	}

	texts := make([]string, len(records))
	ids := make([]string, len(records))
	meta := make([]map[string]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
		ids[i] = r.ID
		meta[i] = map[string]string{MetadataText: r.Text}
	}
	vectors, err := b.embedAll(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	b.swap.Lock()
	defer b.swap.Unlock()
	if err := b.vectors.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset vector index: %w", err)
	}
	for start := 0; start < len(ids); start += b.batchSize {
		end := min(start+b.batchSize, len(ids))
		if err := b.vectors.Upsert(ctx, ids[start:end], vectors[start:end], meta[start:end]); err != nil {
			return nil, fmt.Errorf("upsert vectors %d-%d: %w", start, end, err)
		}
		b.logger.Debug("upserted batch", zap.Int("from", start), zap.Int("to", end))
	}
	if b.fileBacked() {
		if err := b.vectors.Save(b.vectorPath); err != nil {
			return nil, fmt.Errorf("save vector index: %w", err)
		}
	}

	if err := b.docs.Replace(ctx, records); err != nil {
		return nil, fmt.Errorf("replace doc store: %w", err)
	}

	m := &Manifest{
		DataFingerprint:   DataFingerprint(records),
		ConfigFingerprint: ConfigFingerprint(b.cfg),
		BuildID:           uuid.New().String(),
		BuiltAt:           time.Now().UTC(),
		Records:           len(records),
	}
	if err := WriteManifest(b.indexDir, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (b *Builder) fileBacked() bool {
	t := vector.IndexType(b.vectors.Type())
	return b.vectorPath != "" && (t == vector.IndexTypeMemory || t == vector.IndexTypeFAISS)
}

// embedAll encodes texts in batches on a worker pool; output order matches input.
func (b *Builder) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}
	pool, err := ants.NewPool(b.workers)
	if err != nil {
		return nil, fmt.Errorf("create embedding pool: %w", err)
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}
	for start := 0; start < len(texts); start += b.batchSize {
		start, end := start, min(start+b.batchSize, len(texts))
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			vecs, err := embedding.Encode(ctx, b.embedder, texts[start:end], b.normalize)
			if err != nil {
				fail(err)
				return
			}
			copy(out[start:end], vecs)
		})
		if submitErr != nil {
			wg.Done()
			fail(submitErr)
			break
		}
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
