package cache

import (
	"context"
	"time"

	"github.com/matzehuels/siteplan/pkg/observability"
)

// Observed wraps a Cache and reports hits, misses and writes to the
// registered observability cache hooks.
type Observed struct {
	Cache
}

// NewObserved wraps c. A nil c yields a NullCache.
func NewObserved(c Cache) *Observed {
	if c == nil {
		c = NewNullCache()
	}
	return &Observed{Cache: c}
}

// Get implements Cache.
func (o *Observed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, hit, err := o.Cache.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if hit {
		observability.Cache().OnCacheHit(ctx, KeyType(key))
	} else {
		observability.Cache().OnCacheMiss(ctx, KeyType(key))
	}
	return data, hit, nil
}

// Set implements Cache.
func (o *Observed) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := o.Cache.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, KeyType(key), len(data))
	return nil
}

// Clear forwards to the wrapped cache when it supports clearing.
func (o *Observed) Clear(ctx context.Context) error {
	if c, ok := o.Cache.(Clearer); ok {
		return c.Clear(ctx)
	}
	return nil
}
