package models

// Candidate is a retrieval-stage hit. RerankScore is set once the cross-encoder has
// scored it; Record is the backing catalog entry from the doc store.
type Candidate struct {
	ID          string  `json:"id"`
	Score       float64 `json:"similarity_score"`
	Text        string  `json:"text"`
	RerankScore float64 `json:"rerank_score"`
	Rank        int     `json:"rank"`
	Record      *Record `json:"record,omitempty"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results []*Candidate `json:"results"`
	// Retrieved and Filtered count candidates after vector retrieval and after the spec filter.
	Retrieved     int            `json:"retrieved"`
	Filtered      int            `json:"filtered"`
	Query         string         `json:"query"`
	ExpandedQuery string         `json:"expanded_query"`
	Specs         map[string]any `json:"specs"`
	QueryTime     int64          `json:"query_time_ms"`
}
