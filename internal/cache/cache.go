// Package cache memoizes query results keyed by SQL text and parameters.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"ventas-cli/internal/store"
)

// Cache stores query results. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (*store.Result, bool)
	Set(ctx context.Context, key string, result *store.Result)
	Stats() Stats
}

// Stats counts lookups.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// Key derives a stable cache key from a statement and its parameters.
func Key(sql string, params []any) string {
	h := sha256.New()
	h.Write([]byte(sql))
	for _, p := range params {
		fmt.Fprintf(h, "\x00%T:%v", p, p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CachedQuerier serves repeated queries from a cache.
type CachedQuerier struct {
	next    store.Querier
	cache   Cache
	observe func(hit bool)
}

// NewCachedQuerier wraps next. A nil cache disables caching.
func NewCachedQuerier(next store.Querier, c Cache) *CachedQuerier {
	return &CachedQuerier{next: next, cache: c}
}

// OnLookup registers fn to be called after every cache lookup.
func (q *CachedQuerier) OnLookup(fn func(hit bool)) *CachedQuerier {
	q.observe = fn
	return q
}

// Query implements store.Querier.
func (q *CachedQuerier) Query(ctx context.Context, sql string, params ...any) (*store.Result, error) {
	if q.cache == nil {
		return q.next.Query(ctx, sql, params...)
	}
	key := Key(sql, params)
	res, ok := q.cache.Get(ctx, key)
	if q.observe != nil {
		q.observe(ok)
	}
	if ok {
		return res, nil
	}
	res, err := q.next.Query(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	q.cache.Set(ctx, key, res)
	return res, nil
}

// Stats returns the wrapped cache's counters.
func (q *CachedQuerier) Stats() Stats {
	if q.cache == nil {
		return Stats{}
	}
	return q.cache.Stats()
}

func encode(res *store.Result) ([]byte, error) {
	return json.Marshal(res)
}

func decode(data []byte) (*store.Result, error) {
	var res store.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
