package client

import (
	"sync"
	"time"
)

// referralCacheEntry is one positively-cached DFS referral set (spec
// §4.R's DFS resolver: "cache positive referrals with their TTL").
type referralCacheEntry struct {
	referrals []RootReferralTarget
	cachedAt  time.Time
	ttl       time.Duration
}

func (e *referralCacheEntry) expired(now time.Time) bool {
	return now.Sub(e.cachedAt) > e.ttl
}

// negativeCacheEntry remembers a path the server reported NoSuchDevice for,
// so the resolver doesn't hammer the server with repeat referral lookups
// for a link that was just removed (spec §4.R's "short grace period").
type negativeCacheEntry struct {
	cachedAt time.Time
}

// referralCache is the DFS resolver's positive/negative referral cache
// (MaxEntries and TTL follow the teacher's metadataCache LRU-eviction idiom,
// repurposed from directory-listing/stat caching to referral caching).
type referralCache struct {
	mu          sync.Mutex
	positive    map[string]*referralCacheEntry
	negative    map[string]*negativeCacheEntry
	accessOrder []string
	maxEntries  int
	negativeTTL time.Duration
}

func newReferralCache(maxEntries int, negativeTTL time.Duration) *referralCache {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if negativeTTL <= 0 {
		negativeTTL = 10 * time.Second
	}
	return &referralCache{
		positive:    make(map[string]*referralCacheEntry),
		negative:    make(map[string]*negativeCacheEntry),
		accessOrder: make([]string, 0, maxEntries),
		maxEntries:  maxEntries,
		negativeTTL: negativeTTL,
	}
}

func (c *referralCache) get(path string) ([]RootReferralTarget, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.positive[path]
	if !ok {
		return nil, false
	}
	if entry.expired(time.Now()) {
		delete(c.positive, path)
		return nil, false
	}
	c.touch(path)
	return entry.referrals, true
}

func (c *referralCache) put(path string, referrals []RootReferralTarget, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.positive[path]; !exists {
		c.evictIfFull()
		c.accessOrder = append(c.accessOrder, path)
	}
	c.positive[path] = &referralCacheEntry{referrals: referrals, cachedAt: time.Now(), ttl: ttl}
}

func (c *referralCache) markNegative(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.negative[path] = &negativeCacheEntry{cachedAt: time.Now()}
}

func (c *referralCache) isNegative(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.negative[path]
	if !ok {
		return false
	}
	if time.Since(entry.cachedAt) > c.negativeTTL {
		delete(c.negative, path)
		return false
	}
	return true
}

// touch must be called with mu held; it moves path to the most-recently-used
// end of accessOrder.
func (c *referralCache) touch(path string) {
	for i, p := range c.accessOrder {
		if p == path {
			c.accessOrder = append(c.accessOrder[:i], c.accessOrder[i+1:]...)
			break
		}
	}
	c.accessOrder = append(c.accessOrder, path)
}

// evictIfFull must be called with mu held; it drops the least-recently-used
// entry once the cache is at capacity.
func (c *referralCache) evictIfFull() {
	if len(c.accessOrder) < c.maxEntries {
		return
	}
	oldest := c.accessOrder[0]
	c.accessOrder = c.accessOrder[1:]
	delete(c.positive, oldest)
}
