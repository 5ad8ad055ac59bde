package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/edgex-labs/edgex/backend/internal/metrics"
	"github.com/edgex-labs/edgex/backend/pkg/utils"
)

// RateLimiterOptions configures per-client request limits.
type RateLimiterOptions struct {
	Limit          rate.Limit
	Burst          int
	ExpiryDuration time.Duration
	KeyFunc        func(*http.Request) string
}

func DefaultRateLimiterOptions() RateLimiterOptions {
	return RateLimiterOptions{
		Limit:          5,
		Burst:          10,
		ExpiryDuration: time.Hour,
		KeyFunc:        clientIP,
	}
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	mu      sync.Mutex
	options RateLimiterOptions
	clients map[string]*client
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewRateLimiter(m *metrics.Metrics, opts RateLimiterOptions) *RateLimiter {
	d := DefaultRateLimiterOptions()
	if opts.Limit <= 0 {
		opts.Limit = d.Limit
	}
	if opts.Burst <= 0 {
		opts.Burst = d.Burst
	}
	if opts.ExpiryDuration <= 0 {
		opts.ExpiryDuration = d.ExpiryDuration
	}
	if opts.KeyFunc == nil {
		opts.KeyFunc = d.KeyFunc
	}
	return &RateLimiter{
		options: opts,
		clients: make(map[string]*client),
		metrics: m,
		now:     time.Now,
	}
}

// Middleware answers 429 once a client exceeds its bucket.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.options.KeyFunc(r)
		if !rl.getLimiter(key).Allow() {
			rl.metrics.RateLimited()
			slog.Warn("rate limit exceeded", "component", "http", "client", key, "path", r.URL.Path, "method", r.Method)
			w.Header().Set("Retry-After", "1")
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.options.Burst))
			utils.RespondError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run prunes idle clients every minute until ctx ends.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.prune()
		}
	}
}

func (rl *RateLimiter) prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for k, v := range rl.clients {
		if now.Sub(v.lastSeen) > rl.options.ExpiryDuration {
			delete(rl.clients, k)
		}
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.clients[key]
	if !ok {
		v = &client{limiter: rate.NewLimiter(rl.options.Limit, rl.options.Burst)}
		rl.clients[key] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

// clientIP uses RemoteAddr, which chi's RealIP middleware has already rewritten.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
