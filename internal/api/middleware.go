package api

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bingeguide/catalog-data/internal/api/respond"
)

// TimingMiddleware reports server-side processing time on every response so
// dashboard clients can tell a cache hit from a cold catalog query.
func TimingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		ms := float64(time.Since(start).Microseconds()) / 1000.0
		w.Header().Set("X-Process-Time", fmt.Sprintf("%.2fms", ms))
	})
}

// clientLimiters holds one token bucket per client IP. Entries unseen for
// staleAfter are dropped during lookups so the map does not grow with every
// address that ever hit the ops API.
type clientLimiters struct {
	mu      sync.Mutex
	clients map[string]*clientEntry
	rate    rate.Limit
	burst   int

	lastSweep time.Time
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const (
	staleAfter    = 10 * time.Minute
	sweepInterval = time.Minute
)

func newClientLimiters(requestsPerWindow int, window time.Duration) *clientLimiters {
	return &clientLimiters{
		clients:   make(map[string]*clientEntry),
		rate:      rate.Limit(float64(requestsPerWindow) / window.Seconds()),
		burst:     requestsPerWindow / 2,
		lastSweep: time.Now(),
	}
}

func (l *clientLimiters) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > sweepInterval {
		for addr, e := range l.clients {
			if now.Sub(e.lastSeen) > staleAfter {
				delete(l.clients, addr)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.clients[ip]
	if !ok {
		e = &clientEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[ip] = e
	}
	e.lastSeen = now
	return e.limiter.Allow()
}

// RateLimitMiddleware rate-limits by client IP. The ops API sits behind the
// same origin as the catalog frontend, so a single misbehaving dashboard tab
// must not starve the pipeline status endpoints for everyone else.
func RateLimitMiddleware(requestsPerWindow int, window time.Duration) func(http.Handler) http.Handler {
	limiters := newClientLimiters(requestsPerWindow, window)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, _ := net.SplitHostPort(r.RemoteAddr)
			if ip == "" {
				ip = r.RemoteAddr
			}
			if !limiters.allow(ip) {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
				respond.WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
