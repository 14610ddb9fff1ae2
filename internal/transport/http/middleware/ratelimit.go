package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/koshtony/beezy-beta/internal/transport/http/api"
)

type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*rateLimiter)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	mu       sync.Mutex
	perMin   int
	burst    int
	idle     time.Duration
	keyFn    RateLimitKeyFunc
	now      func() time.Time
	clients  map[string]*limiterEntry
	lastScan time.Time
}

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(rl *rateLimiter) {
		if fn != nil {
			rl.keyFn = fn
		}
	}
}

func withClock(now func() time.Time) RateLimitOption {
	return func(rl *rateLimiter) {
		rl.now = now
	}
}

// RateLimit allows perMinute requests per caller with bursts of up to burst.
// Callers are keyed by user when authenticated, otherwise by client IP.
func RateLimit(perMinute, burst int, opts ...RateLimitOption) func(http.Handler) http.Handler {
	rl := &rateLimiter{
		perMin:  perMinute,
		burst:   max(burst, 1),
		idle:    10 * time.Minute,
		keyFn:   actorOrIPKey,
		now:     time.Now,
		clients: map[string]*limiterEntry{},
	}
	for _, opt := range opts {
		opt(rl)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	return "ip:" + clientIPKey(r)
}

func (rl *rateLimiter) limiterFor(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastScan) > rl.idle {
		for k, entry := range rl.clients {
			if now.Sub(entry.lastSeen) > rl.idle {
				delete(rl.clients, k)
			}
		}
		rl.lastScan = now
	}

	entry, ok := rl.clients[key]
	if !ok {
		every := time.Minute / time.Duration(rl.perMin)
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Every(every), rl.burst)}
		rl.clients[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (rl *rateLimiter) enforce(w http.ResponseWriter, r *http.Request) bool {
	if rl.perMin <= 0 {
		return true
	}

	key := rl.keyFn(r)
	if key == "" {
		key = "ip:" + clientIPKey(r)
	}
	limiter := rl.limiterFor(key)
	reservation := limiter.ReserveN(rl.now(), 1)
	delay := reservation.DelayFrom(rl.now())

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.perMin))
	if delay == 0 {
		return true
	}
	reservation.CancelAt(rl.now())

	retryAfter := max(int(delay.Round(time.Second).Seconds()), 1)
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	slog.Warn("rate limit exceeded",
		"key", key,
		"path", r.URL.Path,
		"method", r.Method,
		"per_minute", rl.perMin,
		"burst", rl.burst,
	)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}
