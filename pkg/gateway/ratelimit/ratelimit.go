// Package ratelimit throttles model-backed requests per client address.
package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

type Config struct {
	RPS   float64
	Burst int

	MaxConcurrentRequests int

	// Operational bounds for the in-memory map (single-process only).
	MaxEntries int
	EntryTTL   time.Duration
}

// Enabled reports whether any limit is configured.
func (c Config) Enabled() bool {
	return (c.RPS > 0 && c.Burst > 0) || c.MaxConcurrentRequests > 0
}

type Limiter struct {
	cfg Config

	mu sync.Mutex
	m  map[string]*clientLimiter
}

type clientLimiter struct {
	mu sync.Mutex

	tb tokenBucket

	reqSem chan struct{}

	lastSeen time.Time
}

type tokenBucket struct {
	rps      float64
	capacity float64

	tokens float64
	last   time.Time
}

func New(cfg Config) *Limiter {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10_000
	}
	if cfg.EntryTTL <= 0 {
		cfg.EntryTTL = 30 * time.Minute
	}
	return &Limiter{
		cfg: cfg,
		m:   make(map[string]*clientLimiter),
	}
}

// ClientKey identifies the caller by remote address. Raw addresses are not
// kept in memory.
func ClientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" {
		return "anonymous"
	}
	sum := sha256.Sum256([]byte(host))
	return "c_" + hex.EncodeToString(sum[:16])
}

type Permit struct {
	release func()
}

func (p *Permit) Release() {
	if p == nil || p.release == nil {
		return
	}
	p.release()
	p.release = nil
}

// Limit names the rule that rejected a request.
const (
	LimitRate        = "rate"
	LimitConcurrency = "concurrency"
)

type Decision struct {
	Allowed    bool
	RetryAfter int
	Permit     *Permit
	// Limit is set when Allowed is false.
	Limit string
}

func (l *Limiter) AcquireRequest(client string, now time.Time) Decision {
	if client == "" {
		client = "anonymous"
	}

	cl := l.getOrCreate(client, now)

	// RPS/burst (token bucket).
	if l.cfg.RPS > 0 && l.cfg.Burst > 0 {
		ok, retryAfter := cl.allowToken(now, l.cfg.RPS, l.cfg.Burst)
		if !ok {
			return Decision{Allowed: false, RetryAfter: retryAfter, Limit: LimitRate}
		}
	}

	// Concurrency cap.
	if l.cfg.MaxConcurrentRequests > 0 {
		select {
		case cl.reqSem <- struct{}{}:
			return Decision{
				Allowed: true,
				Permit:  &Permit{release: func() { <-cl.reqSem }},
			}
		default:
			return Decision{Allowed: false, RetryAfter: 1, Limit: LimitConcurrency}
		}
	}

	return Decision{Allowed: true, Permit: &Permit{release: func() {}}}
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

func (l *Limiter) getOrCreate(client string, now time.Time) *clientLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cl, ok := l.m[client]; ok {
		cl.lastSeen = now
		return cl
	}

	if len(l.m) >= l.cfg.MaxEntries {
		l.gcLocked(now)
		// Still full: evict one arbitrary entry to keep memory bounded.
		if len(l.m) >= l.cfg.MaxEntries {
			for k := range l.m {
				delete(l.m, k)
				break
			}
		}
	}

	cl := &clientLimiter{
		reqSem:   make(chan struct{}, max(1, l.cfg.MaxConcurrentRequests)),
		lastSeen: now,
	}
	l.m[client] = cl
	return cl
}

func (l *Limiter) gcLocked(now time.Time) {
	ttl := l.cfg.EntryTTL
	for k, v := range l.m {
		if now.Sub(v.lastSeen) > ttl {
			delete(l.m, k)
		}
	}
}

func (cl *clientLimiter) allowToken(now time.Time, rps float64, burst int) (bool, int) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if burst <= 0 || rps <= 0 {
		return true, 0
	}
	capacity := float64(burst)
	if cl.tb.capacity == 0 {
		cl.tb = tokenBucket{
			rps:      rps,
			capacity: capacity,
			tokens:   capacity,
			last:     now,
		}
	}

	elapsed := now.Sub(cl.tb.last).Seconds()
	if elapsed > 0 {
		cl.tb.tokens = math.Min(cl.tb.capacity, cl.tb.tokens+(elapsed*cl.tb.rps))
		cl.tb.last = now
	}

	if cl.tb.tokens >= 1.0 {
		cl.tb.tokens -= 1.0
		return true, 0
	}

	needed := 1.0 - cl.tb.tokens
	retryAfter := int(math.Ceil(needed / cl.tb.rps))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return false, retryAfter
}
