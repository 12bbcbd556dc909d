package middleware

import (
	"net/http"
	"sync"
	"time"

	"salesdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

// windowEntry counts hits from one IP within a fixed window.
type windowEntry struct {
	count     int
	windowEnd time.Time
}

// RateLimiter is a process-local fixed-window limiter keyed by client IP.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[string]*windowEntry
	now     func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		entries: make(map[string]*windowEntry),
		now:     time.Now,
	}
}

// Allow records one hit for key and reports whether it is within the limit.
func (l *RateLimiter) Allow(key string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[key]
	if !ok || now.After(entry.windowEnd) {
		// Expired entries are dropped whenever a new window opens
		if len(l.entries) > 1024 {
			for k, e := range l.entries {
				if now.After(e.windowEnd) {
					delete(l.entries, k)
				}
			}
		}
		entry = &windowEntry{windowEnd: now.Add(l.window)}
		l.entries[key] = entry
	}

	entry.count++
	return entry.count <= l.limit, entry.windowEnd
}

// Middleware rejects callers over the limit with 429.
func (l *RateLimiter) Middleware(message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, windowEnd := l.Allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", windowEnd.UTC().Format(http.TimeFormat))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Error(http.StatusTooManyRequests, message))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return NewRateLimiter(20, time.Minute).Middleware("Too many login attempts. Try again in a minute.")
}
