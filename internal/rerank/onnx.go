//go:build cgo

package rerank

import (
	"context"
	"fmt"
	"math"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/tansaku/internal/embedding"
)

// ONNXReranker runs a cross-encoder (e.g. ms-marco-MiniLM) that maps an encoded
// (query, passage) pair to a single "logits" value. Scores are passed through a
// sigmoid so they fall in (0, 1).
type ONNXReranker struct {
	session   *ort.AdvancedSession
	maxTokens int
	tokenizer embedding.Tokenizer

	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	logits        *ort.Tensor[float32]
	mu            sync.Mutex
}

// NewONNXReranker loads the cross-encoder at modelPath.
func NewONNXReranker(modelPath string, maxTokens int) (*ONNXReranker, error) {
	if err := embedding.InitONNXRuntime(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}
	r := &ONNXReranker{maxTokens: maxTokens, tokenizer: &embedding.HashTokenizer{}}
	shape := ort.NewShape(1, int64(maxTokens))
	var err error
	if r.inputIDs, err = ort.NewEmptyTensor[int64](shape); err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if r.attentionMask, err = ort.NewEmptyTensor[int64](shape); err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if r.tokenTypeIDs, err = ort.NewEmptyTensor[int64](shape); err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	if r.logits, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1)); err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to create logits tensor: %w", err)
	}
	r.session, err = ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"logits"},
		[]ort.ArbitraryTensor{r.inputIDs, r.attentionMask, r.tokenTypeIDs},
		[]ort.ArbitraryTensor{r.logits},
		nil,
	)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return r, nil
}

// Rerank scores each candidate in turn.
func (r *ONNXReranker) Rerank(ctx context.Context, query string, candidates []Candidate) ([]Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := make([]Result, len(candidates))
	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ids, mask, types := r.tokenizer.TokenizePair(query, c.Text, r.maxTokens)
		copy(r.inputIDs.GetData(), ids)
		copy(r.attentionMask.GetData(), mask)
		copy(r.tokenTypeIDs.GetData(), types)
		if err := r.session.Run(); err != nil {
			return nil, fmt.Errorf("inference failed: %w", err)
		}
		results[i] = Result{ID: c.ID, Score: sigmoid(float64(r.logits.GetData()[0]))}
	}
	return results, nil
}

// Close destroys the session and tensors.
func (r *ONNXReranker) Close() error {
	var err error
	if r.session != nil {
		err = r.session.Destroy()
		r.session = nil
	}
	destroyTensor(r.inputIDs)
	destroyTensor(r.attentionMask)
	destroyTensor(r.tokenTypeIDs)
	destroyTensor(r.logits)
	r.inputIDs, r.attentionMask, r.tokenTypeIDs, r.logits = nil, nil, nil, nil
	return err
}

func destroyTensor[T ort.TensorData](t *ort.Tensor[T]) {
	if t != nil {
		_ = t.Destroy()
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
