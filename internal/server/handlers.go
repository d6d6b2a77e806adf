package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/tansaku/internal/catalog"
	"github.com/hyperjump/tansaku/internal/indexer"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/search"
	"github.com/hyperjump/tansaku/internal/storage"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"service": "tansaku",
		"message": "laptop catalog search is running; POST /api/v1/search",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request",
		zap.String("query", query.Query),
		zap.Int("top_k", query.TopK),
		zap.Int("retrieve_k", query.RetrieveK),
	)
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrEmptyQuery):
			s.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, search.ErrIndexNotBuilt):
			s.respondError(w, http.StatusConflict, err.Error())
		default:
			s.logger.Error("search failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	force := false
	if v := r.URL.Query().Get("force"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid force parameter")
			return
		}
		force = b
	}
	path := s.config.Catalog.SourcePath
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "catalog.source_path is not configured")
		return
	}
	records, err := catalog.Load(path)
	if err != nil {
		s.logger.Error("load catalog failed", zap.String("path", path), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Debug("build request", zap.String("catalog", path), zap.Bool("force", force))
	res, err := s.builder.Build(r.Context(), records, force)
	if err != nil {
		if errors.Is(err, indexer.ErrMissingBuildInput) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"skipped":     res.Skipped,
		"records":     res.Records,
		"duration_ms": res.Duration.Milliseconds(),
	}
	if res.Manifest != nil {
		resp["build_id"] = res.Manifest.BuildID
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var records []*models.Record
	if path := s.config.Catalog.SourcePath; path != "" {
		loaded, err := catalog.Load(path)
		if err != nil {
			s.logger.Warn("status: catalog unavailable", zap.String("path", path), zap.Error(err))
		} else {
			records = loaded
		}
	}
	st, err := s.builder.Status(r.Context(), records)
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"index": st,
		"config": map[string]interface{}{
			"catalog":              s.config.Catalog.SourcePath,
			"doc_store":            s.config.Storage.DocStore,
			"embedding_provider":   s.config.Embedding.Provider,
			"embedding_model":      s.config.Embedding.ModelName,
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"reranker_provider":    s.config.Reranker.Provider,
			"vector_metric":        s.config.Vector.Metric,
			"expansion_enabled":    s.config.Expansion.EnabledOrDefault(),
		},
	})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	limit = min(limit, maxPageSize)
	records, err := s.docs.List(r.Context(), offset, limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.docs.Count(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*models.Record{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"offset":  offset,
		"limit":   limit,
		"total":   total,
	})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.docs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "record not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
