package router

import (
	"net/http"
	"time"

	"github.com/api-sage/banking-ledger/src/internal/adapter/http/controller"
	"github.com/api-sage/banking-ledger/src/internal/adapter/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const requestTimeout = 30 * time.Second

type RouteRegistrar interface {
	RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler)
}

type Options struct {
	ExposeErrorDetails bool
	MetricsEnabled     bool
}

func New(
	opts Options,
	authMiddleware func(http.Handler) http.Handler,
	registrars ...RouteRegistrar,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recoverer(opts.ExposeErrorDetails))
	if opts.MetricsEnabled {
		r.Use(middleware.Metrics)
	}
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.NotFound(controller.NotFound)
	r.MethodNotAllowed(controller.MethodNotAllowed)

	for _, registrar := range registrars {
		if registrar != nil {
			registrar.RegisterRoutes(r, authMiddleware)
		}
	}

	if opts.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}
