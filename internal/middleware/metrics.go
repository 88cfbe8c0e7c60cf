package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/josh-kwaku/wallet-orders/internal/metrics"
)

// Metrics must wrap the ServeMux directly: the mux records the matched
// pattern on the request it receives, which becomes the route label.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.ObserveHTTP(route, r.Method, strconv.Itoa(rec.status), time.Since(start))
		})
	}
}
