package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/indexer"
	"github.com/hyperjump/tansaku/internal/metrics"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/rerank"
	"github.com/hyperjump/tansaku/internal/search"
	"github.com/hyperjump/tansaku/internal/storage"
	"github.com/hyperjump/tansaku/internal/vector"
	"go.uber.org/zap"
)

const laptopsCSV = `Company,TypeName,Ram,Weight,Price,TouchScreen,Ips,Ppi,Cpu_brand,HDD,SSD,Gpu_brand,Os
Dell,Gaming,16,2.5,11.5,0,1,141.2,Intel Core i7,0,512,Nvidia,Windows
HP,Notebook,8,2.1,10.7,0,0,141.2,Intel Core i5,0,256,Intel,Windows
Apple,Ultrabook,8,1.37,11.2,0,1,226.98,Intel Core i5,0,256,Intel,Mac
`

func newTestServer(t *testing.T, withCatalog bool) http.Handler {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Storage.IndexDir = filepath.Join(dir, "index")
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimensions = 32
	cfg.Reranker.Provider = "lexical"
	config.ApplyDefaults(cfg)
	cfg.Storage.VectorIndexPath = filepath.Join(dir, "index", "vectors")
	if withCatalog {
		cfg.Catalog.SourcePath = filepath.Join(dir, "laptops.csv")
		if err := os.WriteFile(cfg.Catalog.SourcePath, []byte(laptopsCSV), 0644); err != nil {
			t.Fatal(err)
		}
	}

	docs := storage.NewJSONDocStore(cfg.Storage.IndexDir)
	embedder := embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	vectors, err := vector.NewMemoryIndex(cfg.Embedding.Dimensions, vector.MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	m := metrics.New()
	logger := zap.NewNop()
	builder := indexer.NewBuilder(docs, embedder, vectors, cfg, indexer.WithMetrics(m))
	engine := search.NewEngine(docs, embedder, vectors, rerank.NewLexicalReranker(), nil, cfg,
		search.WithLogger(logger), search.WithMetrics(m), search.WithIndexGuard(builder))
	return NewServer(engine, builder, docs, cfg, logger, WithMetrics(m)).Router()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
}

func TestHealthAndRoot(t *testing.T) {
	h := newTestServer(t, false)
	for _, path := range []string{"/health", "/"} {
		w := do(t, h, http.MethodGet, path, "")
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: status %d", path, w.Code)
		}
	}
}

func TestSearch_BeforeBuild(t *testing.T) {
	h := newTestServer(t, true)
	w := do(t, h, http.MethodPost, "/api/v1/search", `{"query":"dell laptop"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want 409", w.Code)
	}
}

func TestSearch_BadRequests(t *testing.T) {
	h := newTestServer(t, true)
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"query":`},
		{"empty query", `{"query":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/v1/search", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", w.Code)
			}
		})
	}
}

func TestBuildThenSearch(t *testing.T) {
	h := newTestServer(t, true)

	w := do(t, h, http.MethodPost, "/api/v1/build", "")
	if w.Code != http.StatusOK {
		t.Fatalf("build status %d: %s", w.Code, w.Body.String())
	}
	var built struct {
		Skipped bool   `json:"skipped"`
		Records int    `json:"records"`
		BuildID string `json:"build_id"`
	}
	decode(t, w, &built)
	if built.Skipped || built.Records != 3 || built.BuildID == "" {
		t.Errorf("first build: %+v", built)
	}

	w = do(t, h, http.MethodPost, "/api/v1/build", "")
	decode(t, w, &built)
	if !built.Skipped {
		t.Error("second build should be skipped while fresh")
	}
	w = do(t, h, http.MethodPost, "/api/v1/build?force=true", "")
	decode(t, w, &built)
	if built.Skipped {
		t.Error("forced build should not be skipped")
	}

	w = do(t, h, http.MethodPost, "/api/v1/search", `{"query":"8gb ram laptop","top_k":5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("search status %d: %s", w.Code, w.Body.String())
	}
	var resp models.SearchResponse
	decode(t, w, &resp)
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	for _, c := range resp.Results {
		if c.Record == nil || c.Record.Fields["Ram"] != "8" {
			t.Errorf("result %s does not satisfy Ram=8: %+v", c.ID, c.Record)
		}
	}
	if resp.Specs["Ram"] != "8" {
		t.Errorf("specs: %v", resp.Specs)
	}
}

func TestBuild_Errors(t *testing.T) {
	h := newTestServer(t, false)
	if w := do(t, h, http.MethodPost, "/api/v1/build", ""); w.Code != http.StatusBadRequest {
		t.Errorf("build without catalog: status %d, want 400", w.Code)
	}
	h = newTestServer(t, true)
	if w := do(t, h, http.MethodPost, "/api/v1/build?force=maybe", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad force flag: status %d, want 400", w.Code)
	}
}

func TestStatus(t *testing.T) {
	h := newTestServer(t, true)
	var out struct {
		Index indexer.Status `json:"index"`
	}
	w := do(t, h, http.MethodGet, "/api/v1/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	decode(t, w, &out)
	if out.Index.State != "uninitialized" {
		t.Errorf("state before build = %q", out.Index.State)
	}

	do(t, h, http.MethodPost, "/api/v1/build", "")
	w = do(t, h, http.MethodGet, "/api/v1/status", "")
	decode(t, w, &out)
	if out.Index.State != "fresh" || out.Index.Records != 3 || out.Index.Vectors != 3 {
		t.Errorf("status after build: %+v", out.Index)
	}
}

func TestRecords(t *testing.T) {
	h := newTestServer(t, true)
	do(t, h, http.MethodPost, "/api/v1/build", "")

	w := do(t, h, http.MethodGet, "/api/v1/records/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get record: status %d", w.Code)
	}
	var rec models.Record
	decode(t, w, &rec)
	if rec.ID != "1" || rec.Fields["Company"] != "HP" {
		t.Errorf("record: %+v", rec)
	}

	if w := do(t, h, http.MethodGet, "/api/v1/records/42", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing record: status %d, want 404", w.Code)
	}

	w = do(t, h, http.MethodGet, "/api/v1/records?offset=1&limit=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list records: status %d", w.Code)
	}
	var page struct {
		Records []models.Record `json:"records"`
		Total   int             `json:"total"`
	}
	decode(t, w, &page)
	if page.Total != 3 || len(page.Records) != 1 || page.Records[0].ID != "1" {
		t.Errorf("page: %+v", page)
	}

	if w := do(t, h, http.MethodGet, "/api/v1/records?limit=-1", ""); w.Code != http.StatusBadRequest {
		t.Errorf("negative limit: status %d, want 400", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, true)
	do(t, h, http.MethodPost, "/api/v1/build", "")
	do(t, h, http.MethodPost, "/api/v1/search", `{"query":"dell"}`)

	w := do(t, h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status %d", w.Code)
	}
	body := w.Body.String()
	for _, name := range []string{"tansaku_search_total", "tansaku_index_build_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
