// Package cache memoizes derived metrics per user under typed keys with a
// fixed TTL. The cache is an optimisation only: backend failures are logged
// and the value is computed directly.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"fintrack/internal/log"
)

// DefaultTTL is how long a computed value is served before recomputation.
const DefaultTTL = 300 * time.Second

// Cache is a read-through cache over a Backend. Concurrent misses on the
// same key may each run the computation; the last write wins.
type Cache struct {
	backend Backend
	ttl     time.Duration
	logger  *log.Logger
}

func New(backend Backend, ttl time.Duration, logger *log.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Cache{
		backend: backend,
		ttl:     ttl,
		logger:  logger.WithComponent(log.ComponentCache),
	}
}

func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// GetOrCompute returns the cached value for key, or runs compute, stores the
// result and returns it. Compute errors are returned and nothing is stored.
func GetOrCompute[T any](ctx context.Context, c *Cache, key Key, compute func(context.Context) (T, error)) (T, error) {
	return GetOrComputeWhen(ctx, c, key, compute, nil)
}

// GetOrComputeWhen is GetOrCompute with a predicate deciding whether a fresh
// result is stored. A nil keep stores every result.
func GetOrComputeWhen[T any](ctx context.Context, c *Cache, key Key, compute func(context.Context) (T, error), keep func(T) bool) (T, error) {
	if c == nil {
		return compute(ctx)
	}
	k := key.String()

	if v, ok := load[T](ctx, c, k); ok {
		return v, nil
	}

	v, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if keep != nil && !keep(v) {
		return v, nil
	}

	data, err := msgpack.Marshal(v)
	if err != nil {
		c.logger.WarnContext(ctx, "Cache encode failed", "key", k, log.FieldError, err)
		return v, nil
	}
	if err := c.backend.Set(ctx, k, data, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "Cache write failed", "key", k, log.FieldError, err)
	}
	return v, nil
}

func load[T any](ctx context.Context, c *Cache, k string) (T, bool) {
	var v T
	data, ok, err := c.backend.Get(ctx, k)
	if err != nil {
		c.logger.WarnContext(ctx, "Cache read failed, computing directly", "key", k, log.FieldError, err)
		return v, false
	}
	if !ok {
		return v, false
	}
	if err := msgpack.Unmarshal(data, &v); err != nil {
		c.logger.WarnContext(ctx, "Cache decode failed, computing directly", "key", k, log.FieldError, err)
		var zero T
		return zero, false
	}
	return v, true
}

// Forget evicts key. Evicting an absent key is not an error.
func (c *Cache) Forget(ctx context.Context, key Key) error {
	if err := c.backend.Delete(ctx, key.String()); err != nil {
		return fmt.Errorf("forget %s: %w", key, err)
	}
	return nil
}

// ForgetAll evicts every key, continuing past failures. The returned error
// joins every individual failure.
func (c *Cache) ForgetAll(ctx context.Context, keys []Key) error {
	var errs []error
	for _, key := range keys {
		if err := c.Forget(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CleanExpired drops expired entries from the backend.
func (c *Cache) CleanExpired(ctx context.Context) (int, error) {
	return c.backend.CleanExpired(ctx)
}
