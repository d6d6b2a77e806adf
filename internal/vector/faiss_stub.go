//go:build !faiss || !cgo
// +build !faiss !cgo

package vector

import (
	"context"
	"errors"
)

var errNoFAISS = errors.New("FAISS not available: build with -tags=faiss and install the FAISS C library")

// FAISSIndex is a stub used when the faiss build tag is not set.
type FAISSIndex struct{}

// NewFAISSIndex returns an error because FAISS is not compiled in.
func NewFAISSIndex(int, Metric) (*FAISSIndex, error) {
	return nil, errNoFAISS
}

func (f *FAISSIndex) Upsert(context.Context, []string, [][]float32, []map[string]string) error {
	return errNoFAISS
}

func (f *FAISSIndex) Query(context.Context, []float32, int) ([]*Match, error) {
	return nil, errNoFAISS
}

func (f *FAISSIndex) Reset(context.Context) error { return errNoFAISS }
func (f *FAISSIndex) Save(string) error           { return errNoFAISS }
func (f *FAISSIndex) Load(string) error           { return errNoFAISS }
func (f *FAISSIndex) Size() int                   { return 0 }
func (f *FAISSIndex) Close() error                { return nil }

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}
