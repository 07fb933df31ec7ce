package middleware

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"punchcard/internal/pkg/errors"
)

type RateLimiter struct {
	store *sync.Map // map[string]*bucket
}

type bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
	mu         sync.Mutex
}

func NewRateLimiter() *RateLimiter {
	rl := &RateLimiter{store: &sync.Map{}}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		rl.store.Range(func(key, value interface{}) bool {
			b := value.(*bucket)
			b.mu.Lock()
			if now.Sub(b.lastAccess) > 10*time.Minute {
				rl.store.Delete(key)
			}
			b.mu.Unlock()
			return true
		})
	}
}

func (rl *RateLimiter) Allow(key string, limit int) bool {
	now := time.Now()

	val, _ := rl.store.LoadOrStore(key, &bucket{
		tokens:     limit,
		lastRefill: now,
		lastAccess: now,
	})

	b := val.(*bucket)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastAccess = now

	// Refill at limit per minute.
	elapsed := now.Sub(b.lastRefill)
	refill := int(elapsed.Seconds() * float64(limit) / 60.0)
	if refill > 0 {
		b.tokens += refill
		if b.tokens > limit {
			b.tokens = limit
		}
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Limit keys buckets by client IP. Applied to the credential-bearing auth
// endpoints to slow brute forcing.
func (rl *RateLimiter) Limit(name string, perMinute int) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			key := fmt.Sprintf("%s:%s", ip, name)

			if !rl.Allow(key, perMinute) {
				w.Header().Set("Retry-After", "60")
				errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "Rate limit exceeded", nil)
				return
			}
			next(w, r)
		}
	}
}
