package server

import (
	"net"
	"net/http"
	"sync"

	"github.com/juju/ratelimit"
)

// rateLimiter applies a token bucket per client IP.
type rateLimiter struct {
	clients map[string]*ratelimit.Bucket
	mu      sync.RWMutex
	rate    float64
	burst   int64
}

func newRateLimiter(rate float64, burst int64) *rateLimiter {
	if burst <= 0 {
		burst = 30
	}
	return &rateLimiter{
		clients: make(map[string]*ratelimit.Bucket),
		rate:    rate,
		burst:   burst,
	}
}

func (rl *rateLimiter) bucket(clientIP string) *ratelimit.Bucket {
	rl.mu.RLock()
	bucket, ok := rl.clients[clientIP]
	rl.mu.RUnlock()
	if ok {
		return bucket
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if bucket, ok = rl.clients[clientIP]; !ok {
		bucket = ratelimit.NewBucketWithRate(rl.rate, rl.burst)
		rl.clients[clientIP] = bucket
	}
	return bucket
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if rl.bucket(ip).TakeAvailable(1) == 0 {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
