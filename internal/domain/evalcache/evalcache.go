// Package evalcache memoizes oracle evaluations for the lifetime of one
// analysis run.
package evalcache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/leakscan/internal/domain/model"
)

// Cache maps positions to evaluations. A nil evaluation is a valid entry
// meaning "the oracle has no data"; it is cached like any other answer.
type Cache interface {
	// Get returns the cached evaluation and whether pos has an entry.
	Get(ctx context.Context, pos model.Position) (*model.Evaluation, bool)

	// Store records ev for pos unless pos already has an entry. It returns
	// the entry that is kept, so concurrent writers all observe the first one.
	Store(ctx context.Context, pos model.Position, ev *model.Evaluation) *model.Evaluation

	Size() int64
}

// inMemoryCache implements Cache with a map guarded by a RWMutex.
// When maxSize > 0 and the cache is full, new entries are returned but not kept.
// Entries are never evicted, so a kept answer is never replaced.
type inMemoryCache struct {
	mu      sync.RWMutex
	entries map[model.Position]*model.Evaluation
	maxSize int          // 0 or negative = unbounded
	size    atomic.Int64 // current number of entries
}

// NewInMemoryCache creates an empty cache with configuration options.
func NewInMemoryCache(opts ...Option) Cache {
	c := &inMemoryCache{}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	c.entries = make(map[model.Position]*model.Evaluation)
	return c
}

func (c *inMemoryCache) Get(_ context.Context, pos model.Position) (*model.Evaluation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ev, ok := c.entries[pos]
	return ev, ok
}

func (c *inMemoryCache) Store(_ context.Context, pos model.Position, ev *model.Evaluation) *model.Evaluation {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[pos]; ok {
		return existing
	}
	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		return ev
	}
	c.entries[pos] = ev
	c.size.Add(1)
	return ev
}

// Size returns the current number of entries.
func (c *inMemoryCache) Size() int64 {
	return c.size.Load()
}
