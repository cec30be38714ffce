package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrpay/internal/platform/metrics"
)

// Instrument records request counts and latencies labelled by the matched
// route pattern, so ids in the path do not explode label cardinality.
func Instrument(c *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			c.InFlight(1)
			defer c.InFlight(-1)

			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			c.Record(r.Method, route, recorder.status, time.Since(start))
		})
	}
}
