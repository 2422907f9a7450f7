package cache

import (
	"fmt"

	"github.com/GirishKotra/dynamic-read/errors"
)

// Strategy defines the eviction strategy for the cache.
type Strategy string

const (
	// StrategySimple uses no eviction policy.
	StrategySimple Strategy = "simple"

	// StrategyLRU uses Least Recently Used eviction based on size.
	StrategyLRU Strategy = "lru"
)

// Config contains configuration for cache creation.
type Config struct {
	// Strategy determines the eviction strategy.
	Strategy Strategy `json:"strategy"`

	// MaxSize is the maximum number of entries (for the LRU cache).
	MaxSize int `json:"max_size"`
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() Config {
	return Config{
		Strategy: StrategyLRU,
		MaxSize:  2048,
	}
}

// SetDefaults fills in zero-valued fields with defaults.
func (c *Config) SetDefaults() {
	if c.Strategy == "" {
		c.Strategy = StrategyLRU
	}
	if c.MaxSize == 0 {
		c.MaxSize = 2048
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	switch c.Strategy {
	case StrategySimple, StrategyLRU:
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown strategy %q", c.Strategy),
			"cache", "Validate", "configuration validation")
	}
	if c.Strategy == StrategyLRU && c.MaxSize < 1 {
		return errors.WrapInvalid(
			fmt.Errorf("max_size must be at least 1, got %d", c.MaxSize),
			"cache", "Validate", "configuration validation")
	}
	return nil
}
