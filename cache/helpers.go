package cache

import (
	"context"

	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"
)

// GetAs retrieves the value under key decoded into T.
func GetAs[T any](ctx context.Context, c *Cache, key string) (bool, T, error) {
	var zero T
	found, payload, err := c.lookup(ctx, key)
	if !found || err != nil {
		return false, zero, err
	}
	var result T
	if err := json.Unmarshal(payload, &result); err != nil {
		return false, zero, errors.Mark(errors.Wrapf(err, "decode value for %q as %T", key, zero), ErrSerialization)
	}
	return true, result, nil
}

// Invoker is a function that produces a value of type T.
// The bool return indicates whether a value was found. Return false to signal
// "not found" without caching a zero value.
type Invoker[T any] func(ctx context.Context) (T, bool, error)

// Exec is a cache-aside helper. On a hit it returns the cached value. On a miss
// it calls invoke and, when invoke found a value, stores it with opts before
// returning it. A failed store is logged and the value is still returned.
func Exec[T any](ctx context.Context, c *Cache, key string, opts *SetItemOptions, invoke Invoker[T]) (bool, T, error) {
	var zero T
	found, val, err := GetAs[T](ctx, c, key)
	if err != nil {
		return false, zero, err
	}
	if found {
		return true, val, nil
	}
	result, ok, err := invoke(ctx)
	if err != nil {
		return false, zero, err
	}
	if !ok {
		return false, zero, nil
	}
	if err := c.Set(ctx, key, result, opts); err != nil {
		c.logger.Warn("cache-aside store of %q failed: %v", key, err)
	}
	return true, result, nil
}
