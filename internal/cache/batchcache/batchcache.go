// Package batchcache caches the controller's current judgment batch in
// Redis so repeated GetCurrentBatch calls (e.g. from several assessor
// clients polling the RPC API) don't each force a fresh queue resolution.
package batchcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/relevance-labs/cal-engine/pkg/config"
	pkgredis "github.com/relevance-labs/cal-engine/pkg/redis"
	"github.com/relevance-labs/cal-engine/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const cacheKey = "cal:current-batch"

// BatchCache caches the current judgment batch (a list of document keys)
// behind a singleflight group, so a cache miss triggers at most one
// concurrent recomputation regardless of how many callers ask at once.
//
// Redis calls run through a circuit breaker: a flapping Redis instance
// would otherwise be hit on every single RPC call (GetBatch is on the hot
// path for every polling assessor client), each one blocking on a timeout.
// Once tripped, Get/Set/Invalidate fail fast and GetOrCompute falls back to
// computeFn directly.
type BatchCache struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a BatchCache backed by the given Redis client.
func New(client *pkgredis.Client, cfg config.RedisConfig) *BatchCache {
	return &BatchCache{
		client:  client,
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker("batch-cache-redis", resilience.CircuitBreakerConfig{}),
		logger:  slog.Default().With("component", "batch-cache"),
	}
}

// Get returns the cached batch, if present.
func (c *BatchCache) Get(ctx context.Context) ([]string, bool) {
	var data string
	err := c.breaker.Execute(func() error {
		var getErr error
		data, getErr = c.client.Get(ctx, cacheKey)
		return getErr
	})
	if err != nil {
		if !pkgredis.IsNilError(err) && err != resilience.ErrCircuitOpen {
			c.logger.Error("cache get failed", "key", cacheKey, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var batch []string
	if err := json.Unmarshal([]byte(data), &batch); err != nil {
		c.logger.Error("cache unmarshal failed", "key", cacheKey, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return batch, true
}

// Set stores the current batch with the configured TTL.
func (c *BatchCache) Set(ctx context.Context, batch []string) {
	data, err := json.Marshal(batch)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", cacheKey, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.client.Set(ctx, cacheKey, data, c.cfg.CacheTTL)
	})
	if err != nil {
		c.logger.Error("cache set failed", "key", cacheKey, "error", err)
	}
}

// GetOrCompute returns the cached batch if present, otherwise calls
// computeFn exactly once even under concurrent callers and caches the
// result.
func (c *BatchCache) GetOrCompute(ctx context.Context, computeFn func() ([]string, error)) ([]string, bool, error) {
	if batch, ok := c.Get(ctx); ok {
		return batch, true, nil
	}
	val, err, _ := c.group.Do(cacheKey, func() (interface{}, error) {
		if batch, ok := c.Get(ctx); ok {
			return batch, nil
		}
		batch, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, batch)
		return batch, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]string), false, nil
}

// Invalidate drops the cached batch. Called after every
// Session.RecordJudgments call, since any judgment can change the batch
// contents.
func (c *BatchCache) Invalidate(ctx context.Context) error {
	if err := c.breaker.Execute(func() error { return c.client.Del(ctx, cacheKey) }); err != nil {
		return fmt.Errorf("invalidating batch cache: %w", err)
	}
	return nil
}

// Stats returns cumulative hit/miss counts.
func (c *BatchCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
