package collector

import (
	"sync"

	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// burstFactor multiplies the per-second limit into the bucket size.
const burstFactor = 3

// RateLimiter hands out one token bucket per client IP, holding at most size buckets.
// When the cache is full the evicted bucket is reused for the new key, so cycling
// through many addresses cannot mint fresh allowances.
type RateLimiter struct {
	mu      sync.Mutex
	cache   *simplelru.LRU
	limit   int
	evicted *rate.Limiter
}

// NewRateLimiter allows limit requests per second per IP. A limit of -1 disables limiting.
func NewRateLimiter(size, limit int) (*RateLimiter, error) {
	if size <= 0 || limit < -1 || limit == 0 {
		return nil, errors.Errorf("rate limiter: size and limit must be positive, got size=%d limit=%d", size, limit)
	}
	rl := &RateLimiter{limit: limit}
	onEvicted := func(_ interface{}, value interface{}) {
		rl.evicted = *value.(**rate.Limiter)
	}
	c, err := simplelru.NewLRU(size, simplelru.EvictCallback(onEvicted))
	if err != nil {
		return nil, errors.Wrap(err, "rate limiter cache")
	}
	rl.cache = c
	return rl, nil
}

// Allow consumes one token for key.
func (rl *RateLimiter) Allow(key string) bool {
	if rl == nil || rl.limit == -1 {
		return true
	}
	return rl.limiter(key).Allow()
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.cache.Get(key); ok {
		return *l.(**rate.Limiter)
	}
	limiter := new(*rate.Limiter)
	if evicted := rl.cache.Add(key, limiter); evicted && rl.evicted != nil {
		*limiter = rl.evicted
	} else {
		*limiter = rate.NewLimiter(rate.Limit(rl.limit), rl.limit*burstFactor)
	}
	return *limiter
}
