// SPDX-License-Identifier: AGPL-3.0-or-later

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/cartographus/internal/middleware"
	"github.com/tomtom215/cartographus/internal/stats"
	"github.com/tomtom215/cartographus/internal/wsdash"
)

// RouterConfig bundles everything NewRouter needs to wire the admin
// HTTP surface.
type RouterConfig struct {
	Engine      *stats.Engine
	Hub         *wsdash.Hub
	Issuer      *TokenIssuer
	AdminSecret string
	Middleware  MiddlewareConfig
}

// NewRouter builds the Chi router for the stats engine's admin API:
// health and metrics are open, /admin/login exchanges the shared secret
// for a token, every other /admin/* route requires a bearer token, and
// /ws/dashboard upgrades to the browser-facing WebSocket feed. Route
// layout and middleware ordering follow the teacher's chi_router.go
// (ADR-0016).
func NewRouter(cfg RouterConfig) http.Handler {
	h := NewHandler(cfg.Engine, cfg.Hub, cfg.Issuer, cfg.AdminSecret, OriginAllowed(cfg.Middleware))

	r := chi.NewRouter()
	r.Use(RequestLogging)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORSMiddleware(cfg.Middleware))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/admin", func(r chi.Router) {
		r.Use(RateLimitMiddleware(cfg.Middleware))
		r.Use(PrometheusMetrics)

		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(cfg.Issuer))
			r.With(middleware.Compression).Get("/stats.xml", h.StatsXML)
			r.Get("/stats", h.StatsStream)
			r.With(middleware.Compression).Get("/streams", h.Streams)
		})
	})

	r.Get("/ws/dashboard", h.WSDashboard)

	return r
}
