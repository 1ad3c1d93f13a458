package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"ventas-cli/internal/store"
)

const redisKeyPrefix = "ventas:result:"

// Redis keeps results in a shared redis instance so several web servers can
// reuse them.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisClient dials addr with the pool settings used across the services.
func NewRedisClient(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

// NewRedis wraps client. Entries expire after ttl.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Ping checks connectivity.
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get treats any redis or decoding failure as a miss.
func (c *Redis) Get(ctx context.Context, key string) (*store.Result, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		c.misses.Add(1)
		return nil, false
	}
	res, err := decode(data)
	if err != nil {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return res, true
}

// Set is best effort; a failed write only costs a future miss.
func (c *Redis) Set(ctx context.Context, key string, result *store.Result) {
	data, err := encode(result)
	if err != nil {
		return
	}
	c.client.Set(ctx, redisKeyPrefix+key, data, c.ttl)
}

// Stats reports Entries as -1 since the key space is shared.
func (c *Redis) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: -1}
}
