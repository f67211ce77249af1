// Package dedupe tracks in-flight identifiers so the same background job
// is not queued twice.
package dedupe

import (
	"context"
	"sync"
)

// Tracker records identifiers that are currently in flight.
type Tracker interface {
	// TryAcquire atomically records id as in flight. It returns false if
	// id is already in flight or the tracker is at capacity.
	TryAcquire(ctx context.Context, id string) bool

	// Release removes id, allowing it to be acquired again. Releasing an
	// unknown id is a no-op.
	Release(ctx context.Context, id string)

	// Size returns the number of identifiers currently in flight.
	Size() int64
}

// inMemoryTracker implements Tracker with a bounded set. When the bound is
// reached new acquisitions fail, which callers surface as backpressure.
type inMemoryTracker struct {
	mu      sync.Mutex
	pending map[string]struct{}
	maxSize int
}

// NewInMemoryTracker creates a tracker with configuration options.
func NewInMemoryTracker(opts ...Option) Tracker {
	t := &inMemoryTracker{
		pending: make(map[string]struct{}),
		maxSize: 4096,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *inMemoryTracker) TryAcquire(_ context.Context, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.pending[id]; exists {
		return false
	}
	if t.maxSize > 0 && len(t.pending) >= t.maxSize {
		return false
	}
	t.pending[id] = struct{}{}
	return true
}

func (t *inMemoryTracker) Release(_ context.Context, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, id)
}

func (t *inMemoryTracker) Size() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int64(len(t.pending))
}
