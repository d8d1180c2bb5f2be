package mw

import (
	"net/http"
	"time"

	"github.com/boncukgram/boncuk/pkg/gateway/metrics"
)

// Metrics records the status and latency of every request served by next
// under the fixed route label. A nil m returns next unchanged.
func Metrics(m *metrics.Metrics, route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped, sw := wrapStatus(w)
		next.ServeHTTP(wrapped, r)
		m.RecordRequest(route, r.Method, sw.status, time.Since(start))
		if sw.status >= http.StatusBadRequest {
			m.RecordError(route, errorClass(sw.status))
		}
	})
}

func errorClass(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return "rate_limit"
	case status >= http.StatusInternalServerError:
		return "server"
	default:
		return "client"
	}
}
