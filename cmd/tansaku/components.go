package main

import (
	"context"
	"fmt"

	"github.com/hyperjump/tansaku/internal/catalog"
	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/indexer"
	"github.com/hyperjump/tansaku/internal/lexicon"
	"github.com/hyperjump/tansaku/internal/metrics"
	"github.com/hyperjump/tansaku/internal/rerank"
	"github.com/hyperjump/tansaku/internal/search"
	"github.com/hyperjump/tansaku/internal/storage"
	"github.com/hyperjump/tansaku/internal/vector"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	Docs        storage.DocStore
	Embedder    embedding.Embedder
	VectorIndex vector.VectorIndex
	Reranker    rerank.Reranker
	Expander    *lexicon.Expander
	Metrics     *metrics.Metrics
	Engine      *search.Engine
	Builder     *indexer.Builder
}

func (c *Components) Close() {
	if c.Docs != nil {
		_ = c.Docs.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.Reranker != nil {
		_ = c.Reranker.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	c := &Components{Metrics: metrics.New()}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	docs, err := storage.NewDocStore(cfg.Storage.DocStore, cfg.Storage.IndexDir, cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize doc store: %w", err)
	}
	c.Docs = docs

	embedder, err := embedding.New(&cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Embedder = embedder

	vectorIndex, err := vector.New(&cfg.Vector, cfg.Embedding.Dimensions)
	if err != nil {
		// Fall back to the memory index when the configured type is unavailable (e.g. FAISS not compiled in).
		if vector.IndexType(cfg.Vector.IndexType) != vector.IndexTypeFAISS {
			return nil, fmt.Errorf("failed to initialize vector index: %w", err)
		}
		logger.Warn("failed to create vector index, falling back to memory",
			zap.String("requested_type", cfg.Vector.IndexType),
			zap.Error(err))
		fallback := cfg.Vector
		fallback.IndexType = string(vector.IndexTypeMemory)
		if vectorIndex, err = vector.New(&fallback, cfg.Embedding.Dimensions); err != nil {
			return nil, fmt.Errorf("failed to initialize vector index: %w", err)
		}
	}
	c.VectorIndex = vectorIndex
	if t := vector.IndexType(vectorIndex.Type()); cfg.Storage.VectorIndexPath != "" && t != vector.IndexTypePgVector {
		if loadErr := vectorIndex.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
			logger.Warn("vector index load skipped (run build --force)",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
		}
	}
	logger.Info("vector index initialized",
		zap.String("type", vectorIndex.Type()),
		zap.Int("size", vectorIndex.Size()),
		zap.Bool("faiss_available", vector.IsFAISSAvailable()))

	reranker, err := rerank.New(&cfg.Reranker)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reranker: %w", err)
	}
	c.Reranker = reranker

	var expander search.Expander
	if cfg.Expansion.EnabledOrDefault() {
		lx, err := newExpander(&cfg.Expansion, logger)
		if err != nil {
			return nil, err
		}
		c.Expander = lx
		c.Metrics.RegisterSynonymCache(lx.Cache().Stats)
		expander = lx
	}

	builderOpts := []indexer.BuilderOption{
		indexer.WithMetrics(c.Metrics),
		indexer.WithWorkers(cfg.Embedding.Workers),
	}
	if debug {
		builderOpts = append(builderOpts, indexer.WithLogger(logger))
	}
	c.Builder = indexer.NewBuilder(docs, embedder, vectorIndex, cfg, builderOpts...)

	c.Engine = search.NewEngine(docs, embedder, vectorIndex, reranker, expander, cfg,
		search.WithLogger(logger),
		search.WithMetrics(c.Metrics),
		search.WithIndexGuard(c.Builder),
	)

	ok = true
	return c, nil
}

// newExpander builds the lexical expander from the expansion config.
func newExpander(cfg *config.ExpansionConfig, logger *zap.Logger) (*lexicon.Expander, error) {
	thesaurus, err := lexicon.LoadThesaurus(cfg.ThesaurusPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load thesaurus: %w", err)
	}
	return lexicon.NewExpander(lexicon.NewProseTagger(), thesaurus,
		lexicon.WithMaxSynonyms(cfg.MaxSynonyms),
		lexicon.WithAllowedPOS(cfg.AllowedPOS),
		lexicon.WithDoNotExpand(cfg.DoNotExpand),
		lexicon.WithBlacklist(cfg.Blacklist),
		lexicon.WithBrands(cfg.Brands),
		lexicon.WithCache(lexicon.NewSynonymCache(cfg.CacheSize)),
		lexicon.WithLogger(logger),
	), nil
}

// ensureIndex builds the index from the configured catalog unless it is already fresh.
// Without a configured catalog it does nothing.
func ensureIndex(ctx context.Context, c *Components, cfg *config.Config, logger *zap.Logger) error {
	path := cfg.Catalog.SourcePath
	if path == "" {
		return nil
	}
	records, err := catalog.Load(path)
	if err != nil {
		return err
	}
	res, err := c.Builder.Build(ctx, records, false)
	if err != nil {
		return err
	}
	if !res.Skipped {
		logger.Info("index rebuilt", zap.String("catalog", path), zap.Int("records", res.Records))
	}
	return nil
}
