// Package cache provides generic, thread-safe cache implementations used to
// memoize computed projection plans.
//
// Two cache types are offered:
//   - SimpleCache: no eviction policy (stores items indefinitely)
//   - LRUCache: Least Recently Used eviction bounded by size
//
// All cache implementations are thread-safe with built-in statistics (always
// enabled for observability) and optional Prometheus metrics integration via
// functional options.
package cache

import (
	"fmt"

	"github.com/GirishKotra/dynamic-read/errors"
)

// Cache represents a generic cache interface that all cache implementations
// must satisfy. The cache is parameterized by value type V for type safety.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the value and true if found,
	// zero value and false otherwise.
	Get(key string) (V, bool)

	// Set stores a value with the given key. Returns true if a new entry was
	// created, false if an existing entry was updated.
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries in the cache.
	Size() int

	// Keys returns a slice of all keys currently in the cache.
	Keys() []string

	// Stats returns cache statistics. Always non-nil.
	Stats() *Statistics
}

// EvictCallback is called when an entry is evicted from the cache.
// It receives the key and value of the evicted entry.
type EvictCallback[V any] func(key string, value V)

// New creates a cache instance from the provided configuration.
func New[V any](cfg Config, options ...Option[V]) (Cache[V], error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := applyOptions(options...)

	switch cfg.Strategy {
	case StrategySimple:
		return newSimpleCache(opts)
	case StrategyLRU:
		return newLRUCache[V](cfg.MaxSize, opts)
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("unknown cache strategy %q", cfg.Strategy),
			"cache", "New", "strategy selection")
	}
}

// validateKey rejects keys that cannot be stored.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(
			fmt.Errorf("empty cache key"),
			"cache", "validateKey", "key validation")
	}
	return nil
}
