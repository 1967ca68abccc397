package utils

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

var (
	globalCache *expirable.LRU[string, any]
	cacheOnce   sync.Once
)

// InitGlobalCache sets up the process-wide expiring cache. Safe to call once
// at startup; later calls are ignored.
func InitGlobalCache(size int, ttl time.Duration) {
	cacheOnce.Do(func() {
		globalCache = expirable.NewLRU[string, any](size, nil, ttl)
	})
}

// CacheGet fetches a value from the global cache.
func CacheGet(key string) (any, bool) {
	if globalCache == nil {
		return nil, false
	}
	return globalCache.Get(key)
}

// CacheSet stores a value in the global cache.
func CacheSet(key string, value any) {
	if globalCache == nil {
		return
	}
	globalCache.Add(key, value)
}

// CacheDel removes a key from the global cache.
func CacheDel(key string) {
	if globalCache == nil {
		return
	}
	globalCache.Remove(key)
}
