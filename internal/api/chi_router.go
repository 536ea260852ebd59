// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

// Package api exposes alerts, live traffic and the dashboard websocket over
// HTTP using the chi router.
//
// Routes:
//
//	GET  /healthz
//	GET  /metrics
//	GET  /ws
//	GET  /api/alerts?limit=
//	POST /api/alerts/test
//	POST /api/alerts/{id}/resolve
//	GET  /api/traffic/live?limit=
//	GET  /api/traffic/summary
//	POST /api/detection/reset
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/cyberanalyzer/internal/middleware"
)

// Router wires handlers and middleware.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	websocket     http.HandlerFunc
}

// NewRouter creates a router. ws may be nil when websocket notifications
// are disabled.
func NewRouter(handler *Handler, mw *ChiMiddleware, ws http.HandlerFunc) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		chiMiddleware: mw,
		websocket:     ws,
	}
}

// SetupChi builds the HTTP handler.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // must be global to answer OPTIONS preflight
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusNotFound, ErrCodeNotFound, "route not found")
	})

	r.Get("/healthz", router.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	if router.websocket != nil {
		r.Get("/ws", router.websocket)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", router.handler.ListAlerts)
			r.Post("/test", router.handler.InsertTestAlert)
			r.Post("/{id}/resolve", router.handler.ResolveAlert)
		})

		r.Route("/traffic", func(r chi.Router) {
			r.Get("/live", router.handler.LiveTraffic)
			r.Get("/summary", router.handler.TrafficSummary)
		})

		if router.handler.detector != nil {
			r.Post("/detection/reset", router.handler.ResetDetection)
		}
	})

	return r
}
