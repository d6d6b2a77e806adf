package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// HTTPReranker calls a text-embeddings-inference style "/rerank" endpoint:
// POST {"query", "texts"} -> [{"index", "score"}].
type HTTPReranker struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// HTTPOption configures an HTTPReranker.
type HTTPOption func(*HTTPReranker)

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(r *HTTPReranker) { r.client = c }
}

// WithRateLimit caps requests per second with a burst of one. Zero disables the cap.
func WithRateLimit(perSecond float64) HTTPOption {
	return func(r *HTTPReranker) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// NewHTTPReranker targets host, e.g. "http://localhost:8081".
func NewHTTPReranker(host string, opts ...HTTPOption) (*HTTPReranker, error) {
	if host == "" {
		return nil, fmt.Errorf("reranker host is required")
	}
	r := &HTTPReranker{
		endpoint: strings.TrimRight(host, "/") + "/rerank",
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	RawScores bool     `json:"raw_scores"`
	Truncate  bool     `json:"truncate"`
}

type rerankScore struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Rerank sends all candidates in one request. Empty input makes no request.
func (r *HTTPReranker) Rerank(ctx context.Context, query string, candidates []Candidate) ([]Result, error) {
	if len(candidates) == 0 {
		return []Result{}, nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	body, err := json.Marshal(rerankRequest{Query: query, Texts: texts, Truncate: true})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rerank service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var scores []rerankScore
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i].ID = c.ID
	}
	seen := make([]bool, len(candidates))
	for _, s := range scores {
		if s.Index < 0 || s.Index >= len(candidates) {
			return nil, fmt.Errorf("rerank response index %d out of range", s.Index)
		}
		results[s.Index].Score = s.Score
		seen[s.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("rerank response missing score for candidate %d", i)
		}
	}
	return results, nil
}

// Close releases idle connections.
func (r *HTTPReranker) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
