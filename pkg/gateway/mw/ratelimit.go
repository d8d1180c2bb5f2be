package mw

import (
	"net/http"
	"strconv"
	"time"

	"github.com/boncukgram/boncuk/pkg/core"
	"github.com/boncukgram/boncuk/pkg/gateway/metrics"
	"github.com/boncukgram/boncuk/pkg/gateway/ratelimit"
)

// RateLimit throttles next per client address. Preflight requests pass
// through untouched. Rejections are counted on m.
func RateLimit(limiter *ratelimit.Limiter, m *metrics.Metrics, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		dec := limiter.AcquireRequest(ratelimit.ClientKey(r), time.Now())
		if !dec.Allowed {
			m.RecordRateLimitHit(dec.Limit)
			reqID, _ := RequestIDFrom(r.Context())
			if dec.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(dec.RetryAfter))
			}
			writeJSONError(w, http.StatusTooManyRequests, &core.Error{
				Type:      core.ErrRateLimit,
				Message:   "rate limit exceeded",
				RequestID: reqID,
			})
			return
		}
		if dec.Permit != nil {
			defer dec.Permit.Release()
		}

		next.ServeHTTP(w, r)
	})
}
