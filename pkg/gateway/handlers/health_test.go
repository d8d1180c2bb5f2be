package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/boncukgram/boncuk/pkg/gateway/config"
	"github.com/boncukgram/boncuk/pkg/gateway/lifecycle"
	"github.com/boncukgram/boncuk/pkg/gateway/live/sessions"
	"github.com/boncukgram/boncuk/pkg/settings"
)

func readyConfig() config.Config {
	return config.Config{
		GeminiAPIKey:      "test-key",
		TextModel:         config.DefaultTextModel,
		LiveModel:         config.DefaultLiveModel,
		SettingsBackend:   settings.BackendMemory,
		MaxBodyBytes:      1,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       time.Second,
		HandlerTimeout:    time.Second,
	}
}

func serveReady(t *testing.T, h ReadyHandler) (int, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return rr.Code, resp
}

type pingStore struct {
	*settings.MemoryStore
	err error
}

func (s pingStore) Ping(context.Context) error { return s.err }

func TestHealthHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	HealthHandler{}.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok\n" {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}

func TestReadyHandler_Ready(t *testing.T) {
	tracker := sessions.NewTracker(4)
	unregister, _ := tracker.Register("live_1", sessions.Handle{})
	defer unregister()

	status, resp := serveReady(t, ReadyHandler{
		Config:       readyConfig(),
		Lifecycle:    lifecycle.New(),
		LiveSessions: tracker,
		Settings:     settings.NewMemoryStore(nil),
	})
	if status != http.StatusOK {
		t.Fatalf("status=%d resp=%v", status, resp)
	}
	if resp["ok"] != true || resp["live_sessions"] != float64(1) || resp["live_limit"] != float64(4) {
		t.Fatalf("resp=%v", resp)
	}
	if resp["settings_backend"] != settings.BackendMemory || resp["live_model"] != config.DefaultLiveModel {
		t.Fatalf("resp=%v", resp)
	}
}

func TestReadyHandler_NotReady(t *testing.T) {
	draining := lifecycle.New()
	draining.SetDraining(true)

	noKey := readyConfig()
	noKey.GeminiAPIKey = ""

	cases := []struct {
		name  string
		h     ReadyHandler
		issue string
	}{
		{
			name:  "draining",
			h:     ReadyHandler{Config: readyConfig(), Lifecycle: draining, Settings: settings.NewMemoryStore(nil)},
			issue: "draining",
		},
		{
			name:  "missing key",
			h:     ReadyHandler{Config: noKey, Settings: settings.NewMemoryStore(nil)},
			issue: "gemini api key is not configured",
		},
		{
			name:  "no store",
			h:     ReadyHandler{Config: readyConfig()},
			issue: "settings store is not configured",
		},
		{
			name:  "store unreachable",
			h:     ReadyHandler{Config: readyConfig(), Settings: pingStore{MemoryStore: settings.NewMemoryStore(nil), err: errors.New("refused")}},
			issue: "settings store unreachable",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, resp := serveReady(t, tc.h)
			if status != http.StatusServiceUnavailable || resp["ok"] != false {
				t.Fatalf("status=%d resp=%v", status, resp)
			}
			issues, _ := resp["issues"].([]any)
			found := false
			for _, i := range issues {
				if i == tc.issue {
					found = true
				}
			}
			if !found {
				t.Fatalf("issues=%v missing %q", issues, tc.issue)
			}
		})
	}
}

func TestReadyHandler_PingingStoreHealthy(t *testing.T) {
	status, resp := serveReady(t, ReadyHandler{
		Config:   readyConfig(),
		Settings: pingStore{MemoryStore: settings.NewMemoryStore(nil)},
	})
	if status != http.StatusOK {
		t.Fatalf("status=%d resp=%v", status, resp)
	}
}
