package search

import (
	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/models"
)

// ProcessQuery fills unset sizes from cfg, validates the query and caps TopK at
// cfg.MaxTopK.
func ProcessQuery(query *models.SearchQuery, cfg *config.SearchConfig) error {
	if query.TopK == 0 {
		query.TopK = cfg.TopK
	}
	if query.RetrieveK == 0 {
		query.RetrieveK = cfg.RetrieveK
	}
	if err := query.Validate(); err != nil {
		return err
	}
	if cfg.MaxTopK > 0 && query.TopK > cfg.MaxTopK {
		query.TopK = cfg.MaxTopK
	}
	return nil
}
