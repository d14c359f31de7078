// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dlcs/protagonist-sub009/internal/middleware"
)

// RouterConfig tunes the shared middleware stack.
type RouterConfig struct {
	CORSAllowedOrigins []string
	// RateLimit is requests per window per client IP. Zero disables
	// rate limiting (delivery traffic is typically fronted by a CDN).
	RateLimit       int
	RateLimitWindow time.Duration
}

// NewRouter mounts the delivery routes, the admin re-sync endpoint and
// the observability surface.
func NewRouter(h *RequestHandlers, health *HealthHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Range", "If-None-Match", "If-Modified-Since"},
		MaxAge:         86400,
	}))

	if cfg.RateLimit > 0 {
		window := cfg.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		r.Use(httprate.Limit(cfg.RateLimit, window, httprate.WithKeyFuncs(httprate.KeyByIP)))
	}

	r.Get("/health", health.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.With(middleware.Prometheus("image")).
		Get("/iiif-img/{customer}/{space}/{asset}/*", h.Image)
	r.With(middleware.Prometheus("image")).
		Get("/iiif-img/{customer}/{space}/{asset}", h.Image)

	r.With(middleware.Prometheus("timebased")).
		Get("/iiif-av/{customer}/{space}/{asset}/*", h.Timebased)
	r.With(middleware.Prometheus("timebased")).
		Get("/iiif-av/{customer}/{space}/{asset}", h.Timebased)

	r.With(middleware.Prometheus("file")).
		Get("/file/{customer}/{space}/{asset}", h.File)

	r.With(middleware.Prometheus("admin")).
		Post("/resync/{customer}/{space}/{asset}", h.Resync)

	return r
}
