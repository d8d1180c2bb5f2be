package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/boncukgram/boncuk/pkg/core/advisor"
	"github.com/boncukgram/boncuk/pkg/core/live"
	"github.com/boncukgram/boncuk/pkg/gateway/config"
	"github.com/boncukgram/boncuk/pkg/gateway/handlers"
	"github.com/boncukgram/boncuk/pkg/gateway/lifecycle"
	"github.com/boncukgram/boncuk/pkg/gateway/live/sessions"
	"github.com/boncukgram/boncuk/pkg/gateway/metrics"
	"github.com/boncukgram/boncuk/pkg/gateway/mw"
	"github.com/boncukgram/boncuk/pkg/gateway/ratelimit"
	"github.com/boncukgram/boncuk/pkg/settings"
)

// Deps are the backends the gateway serves. A nil Advisor or Connector makes
// the matching routes answer credential_missing.
type Deps struct {
	Advisor   *advisor.Advisor
	Connector live.Connector
	Settings  settings.Store
}

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux
	deps   Deps

	lifecycle    *lifecycle.Lifecycle
	liveSessions *sessions.Tracker
	limiter      *ratelimit.Limiter
	metrics      *metrics.Metrics
}

func New(cfg config.Config, logger *slog.Logger, deps Deps) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Advisor == nil {
		deps.Advisor = advisor.New(nil, advisor.WithModel(cfg.TextModel), advisor.WithLogger(logger))
	}

	s := &Server{
		cfg:          cfg,
		logger:       logger,
		mux:          http.NewServeMux(),
		deps:         deps,
		lifecycle:    lifecycle.New(),
		liveSessions: sessions.NewTracker(cfg.LiveMaxSessions),
		metrics:      metrics.New("boncuk"),
	}
	limits := ratelimit.Config{
		RPS:                   cfg.LimitRPS,
		Burst:                 cfg.LimitBurst,
		MaxConcurrentRequests: cfg.LimitMaxConcurrentRequests,
	}
	if limits.Enabled() {
		s.limiter = ratelimit.New(limits)
	}

	s.routes()
	return s
}

// NewUpstreamClient returns the HTTP client used for model API calls.
func NewUpstreamClient(cfg config.Config) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ResponseHeaderTimeout: cfg.UpstreamResponseHeaderTimeout,
		},
	}
}

func (s *Server) routes() {
	s.handle("/healthz", handlers.HealthHandler{})
	s.handle("/readyz", handlers.ReadyHandler{
		Config:       s.cfg,
		Lifecycle:    s.lifecycle,
		LiveSessions: s.liveSessions,
		Settings:     s.deps.Settings,
	})
	s.mux.Handle("/metrics", s.metrics.Handler())

	// Companion tools each cost a model call.
	s.handle("/v1/chat", mw.RateLimit(s.limiter, s.metrics, handlers.ChatHandler{Config: s.cfg, Advisor: s.deps.Advisor, Logger: s.logger}))
	s.handle("/v1/mood", mw.RateLimit(s.limiter, s.metrics, handlers.MoodHandler{Config: s.cfg, Advisor: s.deps.Advisor, Logger: s.logger}))
	s.handle("/v1/expert", mw.RateLimit(s.limiter, s.metrics, handlers.ExpertHandler{Config: s.cfg, Advisor: s.deps.Advisor, Logger: s.logger}))
	s.handle("/v1/expert/tools", handlers.ExpertToolsHandler{})

	if s.deps.Settings != nil {
		sh := handlers.SettingsHandler{Settings: settings.New(s.deps.Settings), Logger: s.logger}
		s.handle("/v1/settings", sh)
		s.handle("/v1/settings/", sh)
	}

	s.handle("/v1/live", handlers.LiveHandler{
		Config:       s.cfg,
		Connector:    s.deps.Connector,
		Logger:       s.logger,
		Lifecycle:    s.lifecycle,
		LiveSessions: s.liveSessions,
		Metrics:      s.metrics,
	})

	s.handle("/", handlers.NotFoundHandler{})
}

// handle registers h under pattern, labelled with pattern in request metrics.
func (s *Server) handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, mw.Metrics(s.metrics, pattern, h))
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.MaxBody(s.cfg.MaxBodyBytes, h)
	h = mw.ClientVersion(h)
	h = mw.CORS(s.cfg, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// SetDraining flips readiness to not-ready and refuses new live sessions.
func (s *Server) SetDraining() {
	s.lifecycle.SetDraining(true)
}

// WarnLiveSessionsDraining tells open live clients the gateway is going away.
func (s *Server) WarnLiveSessionsDraining() int {
	return s.liveSessions.WarnAll("draining", "gateway is shutting down")
}

// WaitLiveSessions blocks until every live session ends or ctx is done.
func (s *Server) WaitLiveSessions(ctx context.Context) bool {
	return s.liveSessions.Wait(ctx)
}

// CancelLiveSessions ends every open live session.
func (s *Server) CancelLiveSessions() int {
	return s.liveSessions.CancelAll()
}

// LiveSessions lists the open live sessions.
func (s *Server) LiveSessions() []sessions.Info {
	return s.liveSessions.List()
}

// Metrics returns the gateway's metric series.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}
