package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boncukgram/boncuk/pkg/core/advisor"
	"github.com/boncukgram/boncuk/pkg/gateway/config"
	gatewayserver "github.com/boncukgram/boncuk/pkg/gateway/server"
	"github.com/boncukgram/boncuk/pkg/settings"
)

func testApp() *app {
	a := newApp(func(string) string { return "" })
	a.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return a
}

func serveTestConfig() config.Config {
	return config.Config{
		Addr:                          "127.0.0.1:0",
		LogFormat:                     config.LogFormatText,
		GeminiAPIKey:                  "test-key",
		TextModel:                     config.DefaultTextModel,
		LiveModel:                     config.DefaultLiveModel,
		LiveVoice:                     config.DefaultLiveVoice,
		MaxBodyBytes:                  1 << 20,
		CORSAllowedOrigins:            map[string]struct{}{},
		SettingsBackend:               settings.BackendMemory,
		LiveMaxMessageBytes:           1 << 20,
		LiveHandshakeTimeout:          time.Second,
		LiveWriteTimeout:              time.Second,
		LivePingInterval:              20 * time.Second,
		LiveMaxDuration:               time.Minute,
		LiveMaxSessions:               2,
		ReadHeaderTimeout:             time.Second,
		ReadTimeout:                   time.Second,
		HandlerTimeout:                time.Second,
		ShutdownGracePeriod:           time.Second,
		UpstreamResponseHeaderTimeout: time.Second,
	}
}

func memoryBackends(closed *atomic.Bool) func(context.Context, config.Config, *slog.Logger) (gatewayserver.Deps, func(), error) {
	return func(context.Context, config.Config, *slog.Logger) (gatewayserver.Deps, func(), error) {
		deps := gatewayserver.Deps{
			Advisor:  advisor.New(&fakeGenerator{reply: "ok"}),
			Settings: settings.NewMemoryStore(nil),
		}
		return deps, func() { closed.Store(true) }, nil
	}
}

func TestRunServe_ReturnsErrorWhenConfigLoadFails(t *testing.T) {
	t.Parallel()

	err := runServe(context.Background(), testApp(), serveDeps{
		loadConfig: func() (config.Config, error) {
			return config.Config{}, errors.New("boom")
		},
		openBackends: func(context.Context, config.Config, *slog.Logger) (gatewayserver.Deps, func(), error) {
			t.Fatalf("openBackends should not be called when config load fails")
			return gatewayserver.Deps{}, nil, nil
		},
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {},
		signalStop:   func(c chan<- os.Signal) {},
	})
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("err=%v, want load config error", err)
	}
}

func TestRunServe_MissingDependencies(t *testing.T) {
	t.Parallel()

	if err := runServe(context.Background(), testApp(), serveDeps{}); err == nil {
		t.Fatalf("expected error for missing dependencies")
	}
}

func TestRunServe_BackendFailureIsReturned(t *testing.T) {
	t.Parallel()

	err := runServe(context.Background(), testApp(), serveDeps{
		loadConfig: func() (config.Config, error) { return serveTestConfig(), nil },
		openBackends: func(context.Context, config.Config, *slog.Logger) (gatewayserver.Deps, func(), error) {
			return gatewayserver.Deps{}, nil, errors.New("open settings store: refused")
		},
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {},
		signalStop:   func(c chan<- os.Signal) {},
	})
	if err == nil || !strings.Contains(err.Error(), "refused") {
		t.Fatalf("err=%v", err)
	}
}

func TestRunServe_StopsOnSignal(t *testing.T) {
	t.Parallel()

	var closed atomic.Bool
	notified := make(chan chan<- os.Signal, 1)
	var stopped atomic.Bool

	errCh := make(chan error, 1)
	go func() {
		errCh <- runServe(context.Background(), testApp(), serveDeps{
			loadConfig:   func() (config.Config, error) { return serveTestConfig(), nil },
			openBackends: memoryBackends(&closed),
			signalNotify: func(c chan<- os.Signal, sig ...os.Signal) { notified <- c },
			signalStop:   func(c chan<- os.Signal) { stopped.Store(true) },
		})
	}()

	select {
	case c := <-notified:
		c <- os.Interrupt
	case <-time.After(5 * time.Second):
		t.Fatalf("signalNotify was not called")
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("runServe error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("runServe did not return after signal")
	}
	if !closed.Load() {
		t.Fatalf("backends were not closed")
	}
	if !stopped.Load() {
		t.Fatalf("signalStop was not called")
	}
}

func TestRunServe_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	var closed atomic.Bool
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- runServe(ctx, testApp(), serveDeps{
			loadConfig:   func() (config.Config, error) { return serveTestConfig(), nil },
			openBackends: memoryBackends(&closed),
			signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {},
			signalStop:   func(c chan<- os.Signal) {},
		})
	}()
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("runServe error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("runServe did not return after cancel")
	}
}

func TestBuildHTTPServer_UsesConfiguredAddress(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Addr:              "127.0.0.1:9999",
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       3 * time.Second,
	}

	srv := buildHTTPServer(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	if srv.Addr != cfg.Addr {
		t.Fatalf("Addr=%q, want %q", srv.Addr, cfg.Addr)
	}
	if srv.ReadHeaderTimeout != cfg.ReadHeaderTimeout {
		t.Fatalf("ReadHeaderTimeout=%v, want %v", srv.ReadHeaderTimeout, cfg.ReadHeaderTimeout)
	}
	if srv.ReadTimeout != cfg.ReadTimeout {
		t.Fatalf("ReadTimeout=%v, want %v", srv.ReadTimeout, cfg.ReadTimeout)
	}
}

func TestGatewayHandlerStack_Smoke(t *testing.T) {
	t.Parallel()

	var closed atomic.Bool
	cfg := serveTestConfig()
	deps, _, _ := memoryBackends(&closed)(context.Background(), cfg, nil)
	gw := gatewayserver.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), deps)

	ts := httptest.NewServer(gw.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want %d", resp.StatusCode, http.StatusOK)
	}

	resp, err = http.Post(ts.URL+"/v1/chat", "application/json", strings.NewReader(`{"prompt":"merhaba"}`))
	if err != nil {
		t.Fatalf("POST /v1/chat error: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte(`"ok"`)) {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
}
