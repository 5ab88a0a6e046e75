package http

import (
	"net/http"
	"time"

	"github.com/msgstore/msgstore/internal/telemetry"
)

// securityHeaders sets the same baseline header set the teacher's
// middleware applies, trimmed of the browser-facing CSP/HSTS options
// that don't apply to a pure JSON/binary API.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Del("Server")
		next.ServeHTTP(w, r)
		w.Header().Del("X-Powered-By")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware records request count and latency per route, using
// the route name given at registration (not the raw path) as the label so
// ids never inflate cardinality.
func metricsMiddleware(route string, metrics *telemetry.HTTPMetrics, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		duration := time.Since(start)
		metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())
		metrics.RequestsTotal.WithLabelValues(r.Method, route, http.StatusText(rec.status)).Inc()
	}
}
