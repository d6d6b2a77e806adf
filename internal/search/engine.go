// Package search runs the retrieve, filter and rerank pipeline over a built catalog index.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/indexer"
	"github.com/hyperjump/tansaku/internal/metrics"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/rerank"
	"github.com/hyperjump/tansaku/internal/specs"
	"github.com/hyperjump/tansaku/internal/storage"
	"github.com/hyperjump/tansaku/internal/vector"
	"go.uber.org/zap"
)

// ErrIndexNotBuilt is returned when searching before the first build.
var ErrIndexNotBuilt = errors.New("index has not been built")

// Expander rewrites a query with synonym annotations.
type Expander interface {
	Expand(text string) string
}

// identity is used when expansion is disabled.
type identity struct{}

func (identity) Expand(text string) string { return text }

// IndexGuard is held for reading while a search queries the vector index and doc
// store, so a concurrent rebuild is seen either entirely or not at all.
type IndexGuard interface {
	RLock()
	RUnlock()
}

// Engine answers free-text queries against the doc store and vector index.
type Engine struct {
	docs      storage.DocStore
	embedder  embedding.Embedder
	vectors   vector.VectorIndex
	reranker  rerank.Reranker
	expander  Expander
	config    *config.SearchConfig
	normalize bool
	guard     IndexGuard
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger; the expanded query, specs and stage counts are logged at debug.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records search outcomes, latency and stage counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithIndexGuard shares a rebuild lock with the index builder.
func WithIndexGuard(g IndexGuard) Option {
	return func(e *Engine) { e.guard = g }
}

// NewEngine creates a search engine. A nil expander disables query expansion.
func NewEngine(
	docs storage.DocStore,
	embedder embedding.Embedder,
	vectors vector.VectorIndex,
	reranker rerank.Reranker,
	expander Expander,
	cfg *config.Config,
	opts ...Option,
) *Engine {
	if expander == nil {
		expander = identity{}
	}
	e := &Engine{
		docs:      docs,
		embedder:  embedder,
		vectors:   vectors,
		reranker:  reranker,
		expander:  expander,
		config:    &cfg.Search,
		normalize: cfg.Embedding.NormalizeOrDefault(),
		guard:     &sync.RWMutex{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.guard == nil {
		e.guard = &sync.RWMutex{}
	}
	return e
}

// Search expands and parses the query, retrieves RetrieveK neighbors of the expanded
// query, keeps those whose record satisfies the parsed specs, reranks them against the
// original query and returns the best TopK.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	resp, err := e.search(ctx, query)
	outcome := metrics.OutcomeOK
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case len(resp.Results) == 0:
		outcome = metrics.OutcomeEmpty
	}
	e.metrics.ObserveSearch(outcome, time.Since(start))
	if resp != nil {
		resp.QueryTime = time.Since(start).Milliseconds()
	}
	return resp, err
}

func (e *Engine) search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	if err := ProcessQuery(query, e.config); err != nil {
		return nil, err
	}
	exists, err := e.docs.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check doc store: %w", err)
	}
	if !exists {
		return nil, ErrIndexNotBuilt
	}

	var (
		expanded string
		parsed   *specs.QuerySpecs
		wg       sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		expanded = e.expander.Expand(query.Query)
	}()
	go func() {
		defer wg.Done()
		parsed = specs.Extract(query.Query)
	}()
	wg.Wait()
	e.logger.Debug("query analyzed",
		zap.String("query", query.Query),
		zap.String("expanded", expanded),
		zap.Any("specs", parsed.Map()),
	)

	vec, err := embedding.EncodeOne(ctx, e.embedder, expanded, e.normalize)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	matches, candidates, err := e.retrieve(ctx, vec, query.RetrieveK, parsed)
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveCandidates(metrics.StageRetrieved, len(matches))
	e.metrics.ObserveCandidates(metrics.StageFiltered, len(candidates))

	ranked, err := e.rerank(ctx, query.Query, candidates)
	if err != nil {
		return nil, err
	}
	if len(ranked) > query.TopK {
		ranked = ranked[:query.TopK]
	}
	for i, c := range ranked {
		c.Rank = i + 1
	}
	e.metrics.ObserveCandidates(metrics.StageReturned, len(ranked))
	e.logger.Debug("search finished",
		zap.Int("retrieved", len(matches)),
		zap.Int("filtered", len(candidates)),
		zap.Int("returned", len(ranked)),
	)

	return &models.SearchResponse{
		Results:       ranked,
		Retrieved:     len(matches),
		Filtered:      len(candidates),
		Query:         query.Query,
		ExpandedQuery: expanded,
		Specs:         parsed.Map(),
	}, nil
}

// retrieve queries the vector index and filters the matches against the doc store under
// the index guard.
func (e *Engine) retrieve(ctx context.Context, vec []float32, k int, s *specs.QuerySpecs) ([]*vector.Match, []*models.Candidate, error) {
	e.guard.RLock()
	defer e.guard.RUnlock()
	matches, err := e.vectors.Query(ctx, vec, k)
	if err != nil {
		return nil, nil, fmt.Errorf("vector query failed: %w", err)
	}
	candidates, err := e.filter(ctx, matches, s)
	if err != nil {
		return nil, nil, err
	}
	return matches, candidates, nil
}

// filter keeps matches whose doc store record satisfies the specs, in retrieval order.
// Ids missing from the doc store are dropped.
func (e *Engine) filter(ctx context.Context, matches []*vector.Match, s *specs.QuerySpecs) ([]*models.Candidate, error) {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	records, err := e.docs.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("doc store lookup failed: %w", err)
	}
	out := make([]*models.Candidate, 0, len(matches))
	for _, m := range matches {
		rec, ok := records[m.ID]
		if !ok {
			e.logger.Debug("dropping candidate missing from doc store", zap.String("id", m.ID))
			continue
		}
		if !Matches(rec, s, e.config.ApplyStorageBounds) {
			continue
		}
		text := m.Metadata[indexer.MetadataText]
		if text == "" {
			text = rec.Text
		}
		out = append(out, &models.Candidate{ID: m.ID, Score: m.Score, Text: text, Record: rec})
	}
	return out, nil
}

// rerank scores candidates against the original query and sorts them by score,
// highest first; ties keep retrieval order. The reranker is called even for an empty set.
func (e *Engine) rerank(ctx context.Context, query string, candidates []*models.Candidate) ([]*models.Candidate, error) {
	in := make([]rerank.Candidate, len(candidates))
	for i, c := range candidates {
		in[i] = rerank.Candidate{ID: c.ID, Text: c.Text}
	}
	results, err := e.reranker.Rerank(ctx, query, in)
	if err != nil {
		return nil, fmt.Errorf("rerank failed: %w", err)
	}
	if len(results) != len(candidates) {
		return nil, fmt.Errorf("reranker returned %d scores for %d candidates", len(results), len(candidates))
	}
	for i, r := range results {
		candidates[i].RerankScore = r.Score
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RerankScore > candidates[j].RerankScore
	})
	return candidates, nil
}
