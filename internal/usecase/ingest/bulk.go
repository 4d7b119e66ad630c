package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/crossref/internal/domain/attribute"
	"github.com/kailas-cloud/crossref/internal/metrics"
)

type bulkCommitter interface {
	CommitBulk(ctx context.Context, attrs []attribute.Attribute) (int, error)
}

// BulkBuffer collects the instances a job records and commits them in one
// batch at teardown.
type BulkBuffer struct {
	store bulkCommitter

	mu      sync.Mutex
	pending []attribute.Attribute
}

// NewBulkBuffer creates an empty buffer committing to store.
func NewBulkBuffer(store bulkCommitter) *BulkBuffer {
	return &BulkBuffer{store: store}
}

// Add appends a to the pending batch.
func (b *BulkBuffer) Add(a attribute.Attribute) {
	b.mu.Lock()
	b.pending = append(b.pending, a)
	b.mu.Unlock()
}

// Len returns the number of pending instances.
func (b *BulkBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// FlushAll commits every pending instance in a single store call and
// empties the buffer. A failed batch is not retried. Returns the number of
// instances written.
func (b *BulkBuffer) FlushAll(ctx context.Context) (int, error) {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	b.mu.Unlock()

	if len(batch) == 0 {
		return 0, nil
	}
	n, err := b.store.CommitBulk(ctx, batch)
	metrics.BulkFlushSize.Observe(float64(n))
	if err != nil {
		metrics.BulkFlushErrorsTotal.Inc()
		return n, fmt.Errorf("commit %d instances: %w", len(batch), err)
	}
	return n, nil
}
