package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"service-dispatch/internal/http/handlers"
	mw "service-dispatch/internal/http/middleware"
	"service-dispatch/internal/http/middleware/ratelimit"
	"service-dispatch/internal/logx"
)

// New constructs a chi-based http.Handler with base middleware and routes.
func New(
	logger logx.Logger,
	base *handlers.Handlers,
	orders *handlers.OrderHandler,
	assignments *handlers.AssignmentHandler,
	rateLimit *ratelimit.Middleware,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(mw.Observability(logger))
	r.Use(rateLimit.Handler())
	r.Use(chimw.Timeout(5 * time.Second))

	r.Get("/ping", base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(base.HealthcheckHead))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/orders/{id}", func(r chi.Router) {
		r.Get("/driver", orders.GetDriver)
		r.Post("/assign", orders.Assign)
		r.Post("/reassign", orders.Reassign)
		r.Post("/status", orders.Status)
		r.Post("/cancel", orders.Cancel)
	})

	r.Post("/assignments/{id}/respond", assignments.Respond)

	r.NotFound(http.HandlerFunc(base.NotFound))

	return r
}
