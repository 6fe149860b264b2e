// SPDX-License-Identifier: AGPL-3.0-or-later

package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/metrics"
)

// MiddlewareConfig holds the Chi middleware factory settings, grounded
// on the teacher's api.ChiMiddlewareConfig.
type MiddlewareConfig struct {
	CORSOrigins     []string
	RateLimitReqs   int
	RateLimitWindow time.Duration
}

// CORSMiddleware returns a Chi-compatible CORS handler using
// go-chi/cors.
func CORSMiddleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           86400,
	})
}

// OriginAllowed reports whether origin matches one of cfg's configured
// CORS origins, used to gate the dashboard WebSocket upgrade the same
// way CORSMiddleware gates plain HTTP requests.
func OriginAllowed(cfg MiddlewareConfig) func(string) bool {
	allowed := make(map[string]bool, len(cfg.CORSOrigins))
	wildcard := false
	for _, o := range cfg.CORSOrigins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = true
	}
	return func(origin string) bool {
		return wildcard || allowed[origin]
	}
}

// RateLimitMiddleware returns a Chi-compatible IP rate limiter using
// go-chi/httprate.
func RateLimitMiddleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	if cfg.RateLimitReqs <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(cfg.RateLimitReqs, cfg.RateLimitWindow, httprate.WithKeyFuncs(httprate.KeyByIP))
}

// PrometheusMetrics instruments every request with
// internal/metrics.RecordAPIRequest and APIActiveRequests.
func PrometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rc := routeContext(r); rc != "" {
			route = rc
		}
		metrics.RecordAPIRequest(r.Method, route, http.StatusText(rec.status), time.Since(start))
	})
}

// RequestLogging adds a per-request correlation ID to the logging
// context, matching the teacher's RequestIDWithLogging.
func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := logging.GenerateRequestID()
		w.Header().Set("X-Request-ID", requestID)
		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		ctx = logging.ContextWithNewCorrelationID(ctx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush forwards to the underlying ResponseWriter's Flusher, required
// for the streaming /admin/stats handler to work through this
// middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// routeContext returns the matched Chi route pattern (e.g.
// "/admin/stats.xml") so metrics group by route shape instead of by
// every distinct query string.
func routeContext(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}
