package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/v1/chat", http.MethodPost, 200, time.Second)
	m.RecordLiveSessionStart()
	m.RecordLiveSessionEnd(OutcomeOK, time.Second)
	m.RecordLiveAudio("in", 10)
	m.RecordLiveDropped("frame", 1)
	m.RecordError("/v1/chat", "server")
	m.RecordRateLimitHit("rate")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rr.Code)
	}
}

func TestLiveSessionLifecycle(t *testing.T) {
	m := New("test")
	m.RecordLiveSessionStart()
	m.RecordLiveSessionStart()
	if got := testutil.ToFloat64(m.LiveSessionsActive); got != 2 {
		t.Fatalf("active=%v, want 2", got)
	}
	m.RecordLiveSessionEnd(OutcomeOK, 3*time.Second)
	m.RecordLiveSessionEnd(OutcomeFailed, time.Second)
	if got := testutil.ToFloat64(m.LiveSessionsActive); got != 0 {
		t.Fatalf("active=%v, want 0", got)
	}
	if got := testutil.ToFloat64(m.LiveSessionsTotal.WithLabelValues(OutcomeFailed)); got != 1 {
		t.Fatalf("failed=%v", got)
	}

	m.RecordLiveAudio("out", 960)
	m.RecordLiveAudio("out", 0)
	if got := testutil.ToFloat64(m.LiveAudioBytesTotal.WithLabelValues("out")); got != 960 {
		t.Fatalf("out bytes=%v", got)
	}
	m.RecordLiveDropped("audio", 0)
	if got := testutil.CollectAndCount(m.LiveDroppedTotal); got != 0 {
		t.Fatalf("dropped series=%d, want none for zero drops", got)
	}
}

func TestHandlerExposesSeries(t *testing.T) {
	m := New("")
	m.RecordRequest("/healthz", http.MethodGet, 200, 10*time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`boncuk_requests_total{method="GET",route="/healthz",status="200"} 1`,
		"boncuk_live_sessions_active 0",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}
