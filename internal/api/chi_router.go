// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package api

import (
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/csvingest/internal/auth"
	"github.com/tomtom215/csvingest/internal/config"
	"github.com/tomtom215/csvingest/internal/logging"
	"github.com/tomtom215/csvingest/internal/middleware"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	authMode      string
	jwtManager    *auth.JWTManager
}

// NewRouter creates a router. jwtManager may be nil unless sec.AuthMode is jwt.
func NewRouter(handler *Handler, sec *config.SecurityConfig, jwtManager *auth.JWTManager) *Router {
	mode := auth.AuthModeNone
	if sec != nil && sec.AuthMode != "" {
		mode = sec.AuthMode
	}
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddlewareFromSecurity(sec),
		authMode:      mode,
		jwtManager:    jwtManager,
	}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// recoverer stands in for chi's Recoverer: a panic is logged and answered
// with a 500 ErrorResponse instead of an empty body.
func (router *Router) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logging.Ctx(r.Context()).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("path", r.URL.Path).
				Msg("Recovered from handler panic")
			router.handler.respondError(w, r, http.StatusInternalServerError, MsgUnexpectedError)
		}()
		next.ServeHTTP(w, r)
	})
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied in order
	r.Use(middleware.RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(router.recoverer)
	r.Use(router.chiMiddleware.CORS()) // must be global to answer OPTIONS preflight

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/csv", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(auth.RequireBearer(router.authMode, router.jwtManager))

		r.With(router.chiMiddleware.RateLimitUpload()).Post("/upload", router.handler.UploadCSV)
		r.Get("/scheduler", router.handler.SchedulerHealth)
		r.Get("/runs", router.handler.ListRuns)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
