package mw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/boncukgram/boncuk/pkg/gateway/metrics"
	"github.com/boncukgram/boncuk/pkg/gateway/ratelimit"
)

func TestRateLimit_RejectsOverBurst(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{RPS: 0.1, Burst: 1})
	m := metrics.New("test")
	h := RateLimit(limiter, m, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", nil)
	req.RemoteAddr = "192.0.2.1:1234"

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("first status=%d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second status=%d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "10" {
		t.Fatalf("Retry-After=%q", rr.Header().Get("Retry-After"))
	}
	if !strings.Contains(rr.Body.String(), `"type":"rate_limit_error"`) {
		t.Fatalf("body=%q", rr.Body.String())
	}

	if got := testutil.ToFloat64(m.RateLimitHits.WithLabelValues(ratelimit.LimitRate)); got != 1 {
		t.Fatalf("rate limit hits=%v, want 1", got)
	}

	// Preflight is never throttled.
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/v1/chat", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight status=%d", rr.Code)
	}
}

func TestRateLimit_NilLimiterPassesThrough(t *testing.T) {
	called := false
	h := RateLimit(nil, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/chat", nil))
	if !called {
		t.Fatalf("next not called")
	}
}
