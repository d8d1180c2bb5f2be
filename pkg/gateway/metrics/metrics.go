// Package metrics exposes the gateway's Prometheus series.
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Live session outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Metrics holds all Prometheus series for the gateway.
type Metrics struct {
	registry *prometheus.Registry

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Live session metrics
	LiveSessionsActive  prometheus.Gauge
	LiveSessionsTotal   *prometheus.CounterVec
	LiveSessionDuration prometheus.Histogram
	LiveAudioBytesTotal *prometheus.CounterVec
	LiveDroppedTotal    *prometheus.CounterVec

	// Error metrics
	ErrorsTotal *prometheus.CounterVec

	RateLimitHits *prometheus.CounterVec
}

// New creates a Metrics with every series registered on a private registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "boncuk"
	}

	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"route"},
	)

	liveSessionsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_sessions_active",
			Help:      "Number of open live sessions",
		},
	)

	liveSessionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_sessions_total",
			Help:      "Total number of finished live sessions",
		},
		[]string{"outcome"},
	)

	liveSessionDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "live_session_duration_seconds",
			Help:      "Live session duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	liveAudioBytesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_audio_bytes_total",
			Help:      "PCM bytes relayed in live sessions",
		},
		[]string{"direction"},
	)

	liveDroppedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_dropped_total",
			Help:      "Client audio chunks and frames dropped by the live relay",
		},
		[]string{"kind"},
	)

	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by type",
		},
		[]string{"route", "error_type"},
	)

	rateLimitHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Total number of rejected requests by limit",
		},
		[]string{"limit_type"},
	)

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		requestsTotal,
		requestDuration,
		liveSessionsActive,
		liveSessionsTotal,
		liveSessionDuration,
		liveAudioBytesTotal,
		liveDroppedTotal,
		errorsTotal,
		rateLimitHits,
	)

	return &Metrics{
		registry:            registry,
		RequestsTotal:       requestsTotal,
		RequestDuration:     requestDuration,
		LiveSessionsActive:  liveSessionsActive,
		LiveSessionsTotal:   liveSessionsTotal,
		LiveSessionDuration: liveSessionDuration,
		LiveAudioBytesTotal: liveAudioBytesTotal,
		LiveDroppedTotal:    liveDroppedTotal,
		ErrorsTotal:         errorsTotal,
		RateLimitHits:       rateLimitHits,
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest records a completed request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordLiveSessionStart records a new live session.
func (m *Metrics) RecordLiveSessionStart() {
	if m == nil {
		return
	}
	m.LiveSessionsActive.Inc()
}

// RecordLiveSessionEnd records a live session ending with outcome.
func (m *Metrics) RecordLiveSessionEnd(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.LiveSessionsActive.Dec()
	m.LiveSessionsTotal.WithLabelValues(outcome).Inc()
	m.LiveSessionDuration.Observe(duration.Seconds())
}

// RecordLiveAudio records PCM bytes relayed in direction "in" or "out".
func (m *Metrics) RecordLiveAudio(direction string, bytes int) {
	if m == nil || bytes <= 0 {
		return
	}
	m.LiveAudioBytesTotal.WithLabelValues(direction).Add(float64(bytes))
}

// RecordLiveDropped records n dropped client inputs of kind "audio" or "frame".
func (m *Metrics) RecordLiveDropped(kind string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.LiveDroppedTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordError records an error.
func (m *Metrics) RecordError(route, errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(route, errorType).Inc()
}

// RecordRateLimitHit records a rejected request.
func (m *Metrics) RecordRateLimitHit(limitType string) {
	if m == nil {
		return
	}
	m.RateLimitHits.WithLabelValues(limitType).Inc()
}
