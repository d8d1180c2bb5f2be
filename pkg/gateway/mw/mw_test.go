package mw

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = RequestIDFrom(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !strings.HasPrefix(seen, "req_") || len(seen) != len("req_")+20 {
		t.Fatalf("request id=%q", seen)
	}
	if got := rr.Header().Get("X-Request-ID"); got != seen {
		t.Fatalf("X-Request-ID=%q, want %q", got, seen)
	}
}

func TestRequestID_PropagatesIncoming(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req_client")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "req_client" {
		t.Fatalf("request id=%q", seen)
	}
}

func TestMaxBody_RejectsOversizedBody(t *testing.T) {
	var readErr error
	h := MaxBody(8, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"prompt":"merhaba"}`))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if readErr == nil || !IsBodyTooLarge(readErr) {
		t.Fatalf("read error=%v, want max bytes error", readErr)
	}
}

func TestMaxBody_SkipsWebSocketUpgrade(t *testing.T) {
	var readErr error
	h := MaxBody(2, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/live", strings.NewReader("0123456789"))
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if readErr != nil {
		t.Fatalf("read error=%v", readErr)
	}
}
