package pricefeed

import (
	"context"
	"time"

	"github.com/snipeworks/solana-sniper/pkg/cache"
)

// CachedSource wraps a Source with a short-TTL cache. The TTL is well
// below the watcher interval, so exit decisions always see a price at
// most one cache window old.
type CachedSource struct {
	source Source
	cache  cache.Cache
	ttl    time.Duration
}

// NewCachedSource creates a cached price source.
func NewCachedSource(source Source, c cache.Cache, ttl time.Duration) *CachedSource {
	return &CachedSource{
		source: source,
		cache:  c,
		ttl:    ttl,
	}
}

// GetPrice returns the cached price when fresh, otherwise fetches and
// caches it. Errors are never cached.
func (c *CachedSource) GetPrice(ctx context.Context, tokenAddress string) (float64, error) {
	cached, found := c.cache.Get("price:" + tokenAddress)
	if found {
		if price, ok := cached.(float64); ok {
			return price, nil
		}
	}

	price, err := c.source.GetPrice(ctx, tokenAddress)
	if err != nil {
		return 0, err
	}

	c.cache.Set("price:"+tokenAddress, price, c.ttl)
	return price, nil
}
