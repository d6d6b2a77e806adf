// Package config provides configuration loading and structs for the tansaku server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Reranker  RerankerConfig  `yaml:"reranker"`
	Vector    VectorConfig    `yaml:"vector"`
	Search    SearchConfig    `yaml:"search"`
	Expansion ExpansionConfig `yaml:"expansion"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the doc store, manifest and vector index.
type StorageConfig struct {
	IndexDir string `yaml:"index_dir"`
	// DocStore selects the doc store backend: "json" or "sqlite".
	DocStore        string `yaml:"doc_store"`
	DatabasePath    string `yaml:"database_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
}

// CatalogConfig points at the catalog file used for builds.
type CatalogConfig struct {
	SourcePath string `yaml:"source_path"`
	// Watch rebuilds the index (when stale) whenever the source file changes.
	Watch bool `yaml:"watch"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	ModelName  string `yaml:"model_name"`
	ModelPath  string `yaml:"model_path"`
	Host       string `yaml:"host"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	Normalize  *bool  `yaml:"normalize"`
	// Workers is how many embedding batches run concurrently during a build.
	Workers int `yaml:"workers"`
}

// NormalizeOrDefault returns whether embeddings are L2-normalized; defaults to true when unset.
func (e *EmbeddingConfig) NormalizeOrDefault() bool {
	if e.Normalize != nil {
		return *e.Normalize
	}
	return true
}

// RerankerConfig holds cross-encoder settings.
type RerankerConfig struct {
	Provider  string `yaml:"provider"`
	ModelName string `yaml:"model_name"`
	ModelPath string `yaml:"model_path"`
	Host      string `yaml:"host"`
	MaxTokens int    `yaml:"max_tokens"`
	// RateLimit caps requests per second to a remote reranker; 0 means unlimited.
	RateLimit float64 `yaml:"rate_limit"`
}

// VectorConfig holds vector store settings.
type VectorConfig struct {
	IndexType string `yaml:"index_type"`
	IndexName string `yaml:"index_name"`
	Metric    string `yaml:"metric"`
	DSN       string `yaml:"dsn"`
	BatchSize int    `yaml:"batch_size"`
}

// SearchConfig holds retrieval and rerank sizes.
type SearchConfig struct {
	RetrieveK          int  `yaml:"retrieve_k"`
	TopK               int  `yaml:"top_k"`
	MaxTopK            int  `yaml:"max_top_k"`
	ApplyStorageBounds bool `yaml:"apply_storage_bounds"`
}

// ExpansionConfig holds lexical query expansion settings.
type ExpansionConfig struct {
	Enabled       *bool    `yaml:"enabled"`
	MaxSynonyms   int      `yaml:"max_synonyms"`
	AllowedPOS    []string `yaml:"allowed_pos"`
	CacheSize     int      `yaml:"cache_size"`
	ThesaurusPath string   `yaml:"thesaurus_path"` // YAML thesaurus or WordNet dict directory
	DoNotExpand   []string `yaml:"do_not_expand"`
	Blacklist     []string `yaml:"blacklist"`
	Brands        []string `yaml:"brands"`
}

// EnabledOrDefault returns whether expansion runs; defaults to true when unset.
func (e *ExpansionConfig) EnabledOrDefault() bool {
	if e.Enabled != nil {
		return *e.Enabled
	}
	return true
}

// Load reads and parses the config file at path, applies defaults, expands paths and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.IndexDir = expandPath(cfg.Storage.IndexDir, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Catalog.SourcePath = expandPath(cfg.Catalog.SourcePath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Reranker.ModelPath = expandPath(cfg.Reranker.ModelPath, configDir)
	cfg.Expansion.ThesaurusPath = expandPath(cfg.Expansion.ThesaurusPath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown backends and metrics.
func (c *Config) Validate() error {
	checks := []struct {
		field   string
		value   string
		allowed []string
	}{
		{"storage.doc_store", c.Storage.DocStore, []string{"json", "sqlite"}},
		{"embedding.provider", c.Embedding.Provider, []string{"onnx", "openai", "mock"}},
		{"reranker.provider", c.Reranker.Provider, []string{"onnx", "http", "lexical"}},
		{"vector.index_type", c.Vector.IndexType, []string{"memory", "faiss", "pgvector"}},
		{"vector.metric", c.Vector.Metric, []string{"cosine", "dotproduct", "euclidean"}},
	}
	for _, ch := range checks {
		if !contains(ch.allowed, ch.value) {
			return fmt.Errorf("invalid %s %q (want one of %s)", ch.field, ch.value, strings.Join(ch.allowed, ", "))
		}
	}
	if c.Vector.IndexType == "pgvector" && c.Vector.DSN == "" {
		return fmt.Errorf("vector.dsn is required for pgvector")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
