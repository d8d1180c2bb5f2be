package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestAcquireRequest_EnforcesConcurrency(t *testing.T) {
	l := New(Config{MaxConcurrentRequests: 1})
	now := time.Now()

	first := l.AcquireRequest("c1", now)
	if !first.Allowed || first.Permit == nil {
		t.Fatalf("first allowed=%v permit=%v", first.Allowed, first.Permit)
	}

	second := l.AcquireRequest("c1", now)
	if second.Allowed || second.Limit != LimitConcurrency {
		t.Fatalf("second: allowed=%v limit=%q, want denied by concurrency", second.Allowed, second.Limit)
	}
	if other := l.AcquireRequest("c2", now); !other.Allowed {
		t.Fatalf("other client should be allowed")
	}

	first.Permit.Release()
	first.Permit.Release()
	third := l.AcquireRequest("c1", now)
	if !third.Allowed {
		t.Fatalf("third should be allowed after release")
	}
}

func TestAcquireRequest_TokenBucket(t *testing.T) {
	l := New(Config{RPS: 1, Burst: 2})
	now := time.Now()

	for i := 0; i < 2; i++ {
		if d := l.AcquireRequest("c1", now); !d.Allowed {
			t.Fatalf("request %d denied", i)
		}
	}
	d := l.AcquireRequest("c1", now)
	if d.Allowed || d.RetryAfter != 1 || d.Limit != LimitRate {
		t.Fatalf("third: allowed=%v retry=%d limit=%q", d.Allowed, d.RetryAfter, d.Limit)
	}
	if d := l.AcquireRequest("c1", now.Add(1100*time.Millisecond)); !d.Allowed {
		t.Fatalf("refilled token denied")
	}
}

func TestAcquireRequest_SlowRefillRetryAfter(t *testing.T) {
	l := New(Config{RPS: 0.25, Burst: 1})
	now := time.Now()
	l.AcquireRequest("c1", now)
	if d := l.AcquireRequest("c1", now); d.Allowed || d.RetryAfter != 4 {
		t.Fatalf("allowed=%v retry=%d", d.Allowed, d.RetryAfter)
	}
}

func TestLimiter_BoundsEntries(t *testing.T) {
	l := New(Config{MaxConcurrentRequests: 1, MaxEntries: 2, EntryTTL: time.Minute})
	now := time.Now()
	l.AcquireRequest("a", now)
	l.AcquireRequest("b", now)
	l.AcquireRequest("c", now.Add(2*time.Minute))
	if got := l.Len(); got != 1 {
		t.Fatalf("entries=%d, want stale ones collected", got)
	}
}

func TestClientKey(t *testing.T) {
	r1 := httptest.NewRequest("GET", "/", nil)
	r1.RemoteAddr = "10.0.0.1:5000"
	r2 := httptest.NewRequest("GET", "/", nil)
	r2.RemoteAddr = "10.0.0.1:6000"
	r3 := httptest.NewRequest("GET", "/", nil)
	r3.RemoteAddr = "10.0.0.2:5000"

	if ClientKey(r1) != ClientKey(r2) {
		t.Fatalf("same host, different ports should share a key")
	}
	if ClientKey(r1) == ClientKey(r3) {
		t.Fatalf("different hosts should not share a key")
	}
	r1.RemoteAddr = ""
	if got := ClientKey(r1); got != "anonymous" {
		t.Fatalf("empty addr key=%q", got)
	}
}

func TestConfig_Enabled(t *testing.T) {
	if (Config{}).Enabled() {
		t.Fatalf("zero config should be disabled")
	}
	if !(Config{RPS: 1, Burst: 1}).Enabled() || !(Config{MaxConcurrentRequests: 1}).Enabled() {
		t.Fatalf("configured limits should be enabled")
	}
}
