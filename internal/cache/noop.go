package cache

import (
	"context"
	"time"
)

// NoOpCache is used when CACHE_PROVIDER=none or Redis is unreachable.
// Every lookup misses and every write succeeds.
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache instance
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) GetSummary(ctx context.Context, key string) (*Entry, error) {
	return nil, nil
}

func (c *NoOpCache) SetSummary(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}
