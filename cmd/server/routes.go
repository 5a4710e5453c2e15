package main

import (
	"net/http"
	"time"

	"github.com/benvon/portfolio/internal/gatekeeper"
	"github.com/benvon/portfolio/internal/handlers"
	"github.com/benvon/portfolio/internal/middleware"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

// routeDeps is everything the HTTP surface needs. OpenAPI and Site may be nil.
type routeDeps struct {
	Log            *zap.Logger
	Headers        middleware.SecurityHeaderOptions
	Gate           *gatekeeper.Gatekeeper
	CORS           *middleware.CORSReloader
	Contact        *handlers.ContactHandler
	OpenAPI        *handlers.OpenAPIHandler
	Health         *handlers.HealthChecker
	Site           http.Handler
	RequestTimeout time.Duration
	// TracingService enables otelmux spans under this name when non-empty.
	TracingService string
}

// newHandler builds the router and wraps it in the site-wide middleware.
//
// Outermost first: request id, security headers, audit, logging, panic
// recovery, tracing, gatekeeper, router. Security headers sit outside the
// gate so rejections carry them too; tracing sits outside the gate so
// rejections are recorded on the request span.
func newHandler(d routeDeps) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", d.Health.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", handlers.VersionInfo).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	// The subrouter answers every /api/v1 path itself so the site catch-all never sees them.
	api.NotFoundHandler = http.HandlerFunc(handlers.APINotFound)
	api.MethodNotAllowedHandler = http.HandlerFunc(handlers.APIMethodNotAllowed)
	api.Use(d.CORS.Middleware())
	api.Use(middleware.MaxRequestSize(middleware.ContactMaxRequestSize))
	api.Use(middleware.RequireJSON)
	api.Use(middleware.Timeout(d.RequestTimeout))
	d.Contact.RegisterRoutes(api)
	if d.OpenAPI != nil {
		d.OpenAPI.RegisterRoutes(api)
	}
	// Preflights must match a route for the CORS middleware to run. A matcher
	// func, unlike Methods, does not turn unknown paths into 405s.
	api.MatcherFunc(func(r *http.Request, _ *mux.RouteMatch) bool {
		return r.Method == http.MethodOptions
	}).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if d.Site != nil {
		r.PathPrefix("/").Handler(d.Site)
	}

	var h http.Handler = r
	h = middleware.Gatekeeper(d.Gate)(h)
	if d.TracingService != "" {
		h = otelmux.Middleware(d.TracingService)(h)
	}
	h = middleware.ErrorHandler(d.Log)(h)
	h = middleware.Logging(d.Log)(h)
	h = middleware.Audit(d.Log)(h)
	h = middleware.SecurityHeaders(d.Headers)(h)
	h = middleware.RequestID(h)
	return h
}
