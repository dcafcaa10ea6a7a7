package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	platformmetrics "popcheck/internal/platform/metrics"
	ratelimitmw "popcheck/internal/ratelimit/middleware"
	"popcheck/internal/ratelimit/models"
	metadata "popcheck/pkg/platform/middleware/metadata"
)

// NewRouter wires the public endpoints. Client metadata extraction runs
// before rate limiting so the limiter keys on the real client IP behind
// proxies. httpMetrics may be nil (unit tests).
func NewRouter(h *Handler, rl *ratelimitmw.Middleware, preset models.Preset, httpMetrics *platformmetrics.HTTP) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", h.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.With(rl.RateLimit(preset)).Post("/verify", h.handleVerify)

	return r
}
