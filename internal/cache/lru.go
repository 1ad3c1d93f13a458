package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"ventas-cli/internal/store"
)

// LRU is an in-memory least-recently-used cache with optional expiry.
type LRU struct {
	entries *expirable.LRU[string, *store.Result]
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewLRU creates a cache holding at most maxSize results. A zero ttl keeps
// entries until they are evicted.
func NewLRU(maxSize int, ttl time.Duration) *LRU {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &LRU{entries: expirable.NewLRU[string, *store.Result](maxSize, nil, ttl)}
}

func (c *LRU) Get(_ context.Context, key string) (*store.Result, bool) {
	result, ok := c.entries.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return result, true
}

func (c *LRU) Set(_ context.Context, key string, result *store.Result) {
	c.entries.Add(key, result)
}

func (c *LRU) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: c.entries.Len()}
}
