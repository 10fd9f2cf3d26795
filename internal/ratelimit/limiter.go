// Package ratelimit throttles inbound transport requests per source IP.
// It keeps the teacher's internal/node/middleware.go per-IP bucket-map
// shape and cleanup goroutine, but replaces its hand-rolled token bucket
// with golang.org/x/time/rate, the ecosystem's canonical limiter.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PerIP throttles requests keyed by client IP using one rate.Limiter per
// key. Idle entries are reaped periodically so long-lived nodes don't
// accumulate a limiter per ephemeral client forever.
type PerIP struct {
	mu       sync.Mutex
	limiters map[string]*entry
	rate     rate.Limit
	burst    int
	idleTTL  time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New returns a PerIP allowing ratePerSecond sustained requests with
// bursts up to burst, reaping entries idle for longer than idleTTL.
func New(ratePerSecond float64, burst int, idleTTL time.Duration) *PerIP {
	p := &PerIP{
		limiters: make(map[string]*entry),
		rate:     rate.Limit(ratePerSecond),
		burst:    burst,
		idleTTL:  idleTTL,
		stop:     make(chan struct{}),
	}
	go p.reapLoop()
	return p
}

// Allow reports whether a request from key may proceed right now.
func (p *PerIP) Allow(key string) bool {
	p.mu.Lock()
	e, ok := p.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(p.rate, p.burst)}
		p.limiters[key] = e
	}
	e.lastSeen = time.Now()
	p.mu.Unlock()

	return e.limiter.Allow()
}

func (p *PerIP) reapLoop() {
	ticker := time.NewTicker(p.idleTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-p.idleTTL)
			p.mu.Lock()
			for k, e := range p.limiters {
				if e.lastSeen.Before(cutoff) {
					delete(p.limiters, k)
				}
			}
			p.mu.Unlock()
		case <-p.stop:
			return
		}
	}
}

// Close stops the reaper goroutine. Safe to call more than once.
func (p *PerIP) Close() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Middleware returns an http.Handler wrapper that rejects throttled
// requests with 429 before calling next.
func (p *PerIP) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !p.Allow(clientIP(r)) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if parts := strings.Split(xff, ","); len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
