package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/boncukgram/boncuk/pkg/gateway/config"
	"github.com/boncukgram/boncuk/pkg/gateway/lifecycle"
	"github.com/boncukgram/boncuk/pkg/gateway/live/sessions"
	"github.com/boncukgram/boncuk/pkg/settings"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// pinger is implemented by stores backed by a remote database.
type pinger interface {
	Ping(ctx context.Context) error
}

type ReadyHandler struct {
	Config       config.Config
	Lifecycle    *lifecycle.Lifecycle
	LiveSessions *sessions.Tracker
	Settings     settings.Store
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK              bool     `json:"ok"`
		Draining        bool     `json:"draining"`
		TextModel       string   `json:"text_model"`
		LiveModel       string   `json:"live_model"`
		SettingsBackend string   `json:"settings_backend"`
		LiveSessions    int      `json:"live_sessions"`
		LiveLimit       int      `json:"live_limit,omitempty"`
		UptimeSeconds   int64    `json:"uptime_seconds"`
		Issues          []string `json:"issues,omitempty"`
	}

	issues := make([]string, 0, 4)

	if h.Lifecycle.IsDraining() {
		issues = append(issues, "draining")
	}
	if h.Config.GeminiAPIKey == "" {
		issues = append(issues, "gemini api key is not configured")
	}
	if h.Config.MaxBodyBytes <= 0 {
		issues = append(issues, "max_body_bytes must be > 0")
	}
	if h.Config.ReadHeaderTimeout <= 0 || h.Config.ReadTimeout <= 0 || h.Config.HandlerTimeout <= 0 {
		issues = append(issues, "timeouts must be > 0")
	}
	if h.Settings == nil {
		issues = append(issues, "settings store is not configured")
	} else if p, ok := h.Settings.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := p.Ping(ctx)
		cancel()
		if err != nil {
			issues = append(issues, "settings store unreachable")
		}
	}

	ok := len(issues) == 0
	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, readyResp{
		OK:              ok,
		Draining:        h.Lifecycle.IsDraining(),
		TextModel:       h.Config.TextModel,
		LiveModel:       h.Config.LiveModel,
		SettingsBackend: h.Config.SettingsBackend,
		LiveSessions:    h.LiveSessions.Count(),
		LiveLimit:       h.LiveSessions.Limit(),
		UptimeSeconds:   int64(h.Lifecycle.Uptime() / time.Second),
		Issues:          issues,
	})
}
