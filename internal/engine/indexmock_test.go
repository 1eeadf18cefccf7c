package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
)

// mockIndex is a simple in-memory mock of the Index interface for testing
type mockIndex struct {
	docCount    uint64
	searchError error
	batchError  error
	countError  error
	closeError  error
	batches     atomic.Int32
	closed      atomic.Bool
}

func newMockIndex() *mockIndex {
	return &mockIndex{docCount: 100}
}

func (m *mockIndex) SearchInContext(ctx context.Context, req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	if m.closed.Load() {
		return nil, fmt.Errorf("index closed")
	}
	if m.searchError != nil {
		return nil, m.searchError
	}
	// Return minimal valid search result (nil hits is valid)
	return &bleve.SearchResult{
		Request: req,
		Total:   m.docCount,
	}, nil
}

func (m *mockIndex) NewBatch() *bleve.Batch {
	// A batch needs a real index behind it; an in-memory one is enough
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		panic(err)
	}
	return idx.NewBatch()
}

func (m *mockIndex) Batch(b *bleve.Batch) error {
	if m.batchError != nil {
		return m.batchError
	}
	m.batches.Add(1)
	m.docCount += uint64(b.Size())
	return nil
}

func (m *mockIndex) DocCount() (uint64, error) {
	if m.closed.Load() {
		return 0, fmt.Errorf("index closed")
	}
	if m.countError != nil {
		return 0, m.countError
	}
	return m.docCount, nil
}

func (m *mockIndex) Close() error {
	if m.closed.Load() {
		return fmt.Errorf("already closed")
	}
	m.closed.Store(true)
	return m.closeError
}
