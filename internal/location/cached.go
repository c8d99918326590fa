package location

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

const cacheKey = "self"

// Cached memoizes the last complete resolution of the wrapped Locator.
// Incomplete results are never stored, so a later call retries the chain.
type Cached struct {
	next  Locator
	cache *cache.Cache
}

// NewCached wraps next with a cache whose entries expire after ttl.
func NewCached(next Locator, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *Cached) Resolve(ctx context.Context) Info {
	if v, ok := c.cache.Get(cacheKey); ok {
		if info, ok := v.(Info); ok {
			return info
		}
	}

	info := c.next.Resolve(ctx)
	if info.Complete() {
		c.cache.SetDefault(cacheKey, info)
	}
	return info
}

// Flush drops any memoized resolution.
func (c *Cached) Flush() {
	c.cache.Flush()
}
