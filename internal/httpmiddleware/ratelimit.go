package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter enforces a per-client request budget with a refilling bucket.
// State lives in memory; a multi-instance deployment would move this to
// Redis.
type RateLimiter struct {
	capacity int
	perMin   int

	mu      sync.Mutex
	buckets map[string]*clientBucket
}

type clientBucket struct {
	tokens   float64
	lastFill time.Time
}

// NewRateLimiter allows perMinute requests per client IP, bursting up to
// perMinute at once.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &RateLimiter{
		capacity: perMinute,
		perMin:   perMinute,
		buckets:  make(map[string]*clientBucket),
	}
}

// Middleware returns a gin handler rejecting over-budget clients with 429.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if key == "" {
			key = "unknown"
		}
		if !l.allow(key, time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = &clientBucket{tokens: float64(l.capacity), lastFill: now}
		l.buckets[key] = b
	}
	refill := now.Sub(b.lastFill).Minutes() * float64(l.perMin)
	if refill > 0 {
		b.tokens += refill
		if b.tokens > float64(l.capacity) {
			b.tokens = float64(l.capacity)
		}
		b.lastFill = now
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
