// Package rerank scores (query, candidate text) pairs with a cross-encoder style model.
package rerank

import (
	"context"
	"strings"

	"github.com/hyperjump/tansaku/internal/embedding"
)

// Candidate is a retrieved record to score.
type Candidate struct {
	ID   string
	Text string
}

// Result is a candidate's relevance score for the query.
type Result struct {
	ID    string
	Score float64
}

// Reranker scores candidates against a query. Results come back in input order;
// empty input yields empty output.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate) ([]Result, error)
	Close() error
}

// LexicalReranker scores by the share of query words found in the candidate text.
// It is deterministic and needs no model, which makes it the test and fallback choice.
type LexicalReranker struct{}

// NewLexicalReranker returns a word-overlap reranker.
func NewLexicalReranker() *LexicalReranker {
	return &LexicalReranker{}
}

// Rerank returns the overlap score of each candidate.
func (r *LexicalReranker) Rerank(ctx context.Context, query string, candidates []Candidate) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results := make([]Result, len(candidates))
	qWords := unique(embedding.Words(query))
	for i, c := range candidates {
		results[i] = Result{ID: c.ID, Score: overlap(qWords, embedding.Words(c.Text))}
	}
	return results, nil
}

// Close is a no-op.
func (r *LexicalReranker) Close() error {
	return nil
}

func unique(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := words[:0:0]
	for _, w := range words {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

func overlap(query, doc []string) float64 {
	if len(query) == 0 {
		return 0
	}
	docSet := make(map[string]bool, len(doc))
	for _, w := range doc {
		docSet[w] = true
	}
	hits := 0
	for _, w := range query {
		if docSet[w] || docSet[strings.TrimSuffix(w, "s")] {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}
