package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
embedding:
  provider: mock
  dimensions: 32
reranker:
  provider: lexical
search:
  retrieve_k: 20
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Embedding.Provider != "mock" || cfg.Embedding.Dimensions != 32 {
		t.Errorf("unexpected embedding config: %+v", cfg.Embedding)
	}
	if cfg.Search.RetrieveK != 20 || cfg.Search.TopK != 5 {
		t.Errorf("unexpected search config: %+v", cfg.Search)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if !cfg.Embedding.NormalizeOrDefault() {
		t.Error("normalize should default to true")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  index_dir: "./data/index"
catalog:
  source_path: "./laptops.csv"
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "index"); cfg.Storage.IndexDir != want {
		t.Errorf("index_dir = %s, want %s", cfg.Storage.IndexDir, want)
	}
	if want := filepath.Join(dir, "laptops.csv"); cfg.Catalog.SourcePath != want {
		t.Errorf("source_path = %s, want %s", cfg.Catalog.SourcePath, want)
	}
	if cfg.Expansion.ThesaurusPath != "" {
		t.Errorf("empty thesaurus_path should stay empty, got %s", cfg.Expansion.ThesaurusPath)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"bad metric", "vector:\n  metric: manhattan\n", "vector.metric"},
		{"bad doc store", "storage:\n  doc_store: redis\n", "storage.doc_store"},
		{"pgvector without dsn", "vector:\n  index_type: pgvector\n", "vector.dsn"},
		{"bad yaml", "server: [", "failed to parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("default server: got %+v", cfg.Server)
	}
	if cfg.Search.RetrieveK != 50 || cfg.Search.TopK != 5 {
		t.Errorf("default search sizes: got %+v", cfg.Search)
	}
	if cfg.Vector.BatchSize != 100 || cfg.Vector.Metric != "cosine" || cfg.Vector.IndexType != "memory" {
		t.Errorf("default vector: got %+v", cfg.Vector)
	}
	if cfg.Expansion.MaxSynonyms != 2 || cfg.Expansion.CacheSize != 2048 {
		t.Errorf("default expansion: got %+v", cfg.Expansion)
	}
	if len(cfg.Expansion.AllowedPOS) != 3 || cfg.Expansion.AllowedPOS[0] != "NN" {
		t.Errorf("allowed pos: got %v", cfg.Expansion.AllowedPOS)
	}
	if len(cfg.Expansion.Brands) != 15 {
		t.Errorf("brands: got %d", len(cfg.Expansion.Brands))
	}
	if cfg.Storage.DocStore != "json" {
		t.Errorf("doc store: got %s", cfg.Storage.DocStore)
	}
	if cfg.Embedding.Workers != 4 {
		t.Errorf("embedding workers: got %d", cfg.Embedding.Workers)
	}
	if cfg.Reranker.RateLimit != 0 {
		t.Errorf("reranker rate limit should default to unlimited, got %v", cfg.Reranker.RateLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestOrDefault(t *testing.T) {
	f := false
	e := &EmbeddingConfig{Normalize: &f}
	if e.NormalizeOrDefault() {
		t.Error("explicit normalize false should be honored")
	}
	x := &ExpansionConfig{}
	if !x.EnabledOrDefault() {
		t.Error("expansion should default to enabled")
	}
	x.Enabled = &f
	if x.EnabledOrDefault() {
		t.Error("explicit enabled false should be honored")
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{IndexDir: "/tmp/index"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Storage.IndexDir != "/tmp/index" {
		t.Errorf("loaded index dir: got %s", loaded.Storage.IndexDir)
	}
}
