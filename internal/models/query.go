package models

import (
	"errors"
	"strings"
)

// Search defaults: how many neighbors to pull from the vector store and how many
// reranked results to return.
const (
	DefaultRetrieveK = 50
	DefaultTopK      = 5
	MaxTopK          = 100
	MaxRetrieveK     = 1000
)

// ErrEmptyQuery is returned by Validate for a blank query.
var ErrEmptyQuery = errors.New("query cannot be empty")

// SearchQuery represents a search request.
type SearchQuery struct {
	Query string `json:"query"`
	// TopK is the number of reranked results returned (rerank_k).
	TopK int `json:"top_k,omitempty"`
	// RetrieveK is the number of nearest neighbors fetched before filtering.
	RetrieveK int `json:"retrieve_k,omitempty"`
}

// Validate ensures the query is non-empty and clamps TopK and RetrieveK into range,
// filling defaults for zero values.
func (q *SearchQuery) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return ErrEmptyQuery
	}
	if q.TopK <= 0 {
		q.TopK = DefaultTopK
	}
	if q.TopK > MaxTopK {
		q.TopK = MaxTopK
	}
	if q.RetrieveK <= 0 {
		q.RetrieveK = DefaultRetrieveK
	}
	if q.RetrieveK > MaxRetrieveK {
		q.RetrieveK = MaxRetrieveK
	}
	return nil
}
