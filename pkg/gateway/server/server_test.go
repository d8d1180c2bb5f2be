package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/genai"

	"github.com/boncukgram/boncuk/pkg/core/advisor"
	"github.com/boncukgram/boncuk/pkg/core/live/livetest"
	"github.com/boncukgram/boncuk/pkg/gateway/config"
	"github.com/boncukgram/boncuk/pkg/gateway/ratelimit"
	"github.com/boncukgram/boncuk/pkg/settings"
)

type stubGenerator struct{ reply string }

func (g stubGenerator) GenerateContent(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(g.reply, genai.RoleModel)}},
	}, nil
}

func testConfig() config.Config {
	return config.Config{
		GeminiAPIKey:         "test-key",
		TextModel:            config.DefaultTextModel,
		LiveModel:            config.DefaultLiveModel,
		LiveVoice:            config.DefaultLiveVoice,
		SettingsBackend:      settings.BackendMemory,
		CORSAllowedOrigins:   map[string]struct{}{},
		MaxBodyBytes:         1 << 20,
		LiveMaxMessageBytes:  64 * 1024,
		LiveHandshakeTimeout: time.Second,
		LiveWriteTimeout:     time.Second,
		LiveMaxDuration:      time.Minute,
		LiveMaxSessions:      4,
		ReadHeaderTimeout:    time.Second,
		ReadTimeout:          time.Second,
		HandlerTimeout:       5 * time.Second,
		ShutdownGracePeriod:  time.Second,
	}
}

func newTestServer(t *testing.T) (*Server, *livetest.Connector) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	connector := &livetest.Connector{}
	s := New(testConfig(), logger, Deps{
		Advisor:   advisor.New(stubGenerator{reply: "cik cik"}, advisor.WithModel(config.DefaultTextModel)),
		Connector: connector,
		Settings:  settings.NewMemoryStore(nil),
	})
	return s, connector
}

func TestServer_UnknownRoute_ReturnsJSON404(t *testing.T) {
	s, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%q", ct)
	}
	if !strings.Contains(rr.Body.String(), `"type":"not_found_error"`) {
		t.Fatalf("unexpected body: %q", rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID")
	}
}

func TestServer_ChatRoute(t *testing.T) {
	s, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"prompt":"selam"}`))
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"text":"cik cik"`) {
		t.Fatalf("unexpected body: %q", rr.Body.String())
	}
}

func TestServer_RoutesReachable(t *testing.T) {
	s, _ := newTestServer(t)

	cases := []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/v1/expert/tools", http.StatusOK},
		{http.MethodGet, "/v1/settings", http.StatusOK},
		{http.MethodPost, "/v1/settings/unlock", http.StatusOK},
		{http.MethodGet, "/v1/mood", http.StatusMethodNotAllowed},
		{http.MethodGet, "/v1/expert", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
		if rr.Code != tc.status {
			t.Fatalf("%s %s: status=%d want %d body=%q", tc.method, tc.path, rr.Code, tc.status, rr.Body.String())
		}
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"prompt":"selam"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("chat status=%d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `boncuk_requests_total{method="POST",route="/v1/chat",status="200"} 1`) {
		t.Fatalf("chat request not counted:\n%s", rr.Body.String())
	}
}

func TestServer_WithoutSettingsStore(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	s := New(testConfig(), logger, Deps{})

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/settings", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"prompt":"hi"}`)))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("chat without client: status=%d", rr.Code)
	}
}

func TestServer_RejectsOtherAppMajor(t *testing.T) {
	s, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/expert/tools", nil)
	req.Header.Set("X-Boncuk-Version", "2.0")
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "unsupported_version") {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("X-Boncuk-Version"); got != "1" {
		t.Fatalf("served version=%q", got)
	}
}

func TestServer_BodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBodyBytes = 16
	s := New(cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)), Deps{Advisor: advisor.New(stubGenerator{reply: "x"})})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"prompt":"`+strings.Repeat("a", 64)+`"}`))
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "body_too_large") {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}

func TestServer_RateLimitsCompanionRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.LimitRPS = 0.01
	cfg.LimitBurst = 1
	s := New(cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)), Deps{Advisor: advisor.New(stubGenerator{reply: "x"})})

	post := func() int {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/expert", strings.NewReader(`{"tool":"Su Takibi","query":"?"}`))
		s.Handler().ServeHTTP(rr, req)
		return rr.Code
	}
	if got := post(); got != http.StatusOK {
		t.Fatalf("first status=%d", got)
	}
	if got := post(); got != http.StatusTooManyRequests {
		t.Fatalf("second status=%d", got)
	}
	if got := testutil.ToFloat64(s.Metrics().RateLimitHits.WithLabelValues(ratelimit.LimitRate)); got != 1 {
		t.Fatalf("rate limit hits=%v", got)
	}

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/expert/tools", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("tools status=%d", rr.Code)
	}
}

func TestServer_DrainingRefusesLiveAndReadiness(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	s.SetDraining()

	resp, err := http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d", resp.StatusCode)
	}

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/live"
	_, wsResp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil || wsResp == nil || wsResp.StatusCode != 529 {
		t.Fatalf("err=%v resp=%v", err, wsResp)
	}
}

func TestServer_LiveSessionsDrain(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(map[string]any{"type": "hello"}); err != nil {
		t.Fatalf("hello: %v", err)
	}
	waitState(t, conn, "ACTIVE")

	if got := len(s.LiveSessions()); got != 1 {
		t.Fatalf("live sessions=%d", got)
	}
	if n := s.WarnLiveSessionsDraining(); n != 1 {
		t.Fatalf("warned=%d", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	drained := s.WaitLiveSessions(ctx)
	cancel()
	if drained {
		t.Fatalf("expected session to still be open")
	}
	if n := s.CancelLiveSessions(); n != 1 {
		t.Fatalf("canceled=%d", n)
	}
	waitState(t, conn, "CLOSED")

	ctx, cancel = context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if !s.WaitLiveSessions(ctx) {
		t.Fatalf("sessions did not drain")
	}
}

func waitState(t *testing.T, conn *websocket.Conn, state string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", state, err)
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg["type"] == "status" && msg["state"] == state {
			return
		}
	}
	t.Fatalf("timed out waiting for %s", state)
}
