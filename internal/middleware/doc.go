// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

/*
Package middleware provides the chi-compatible HTTP middleware shared by the
API router.

  - RequestID: tags each request with an X-Request-ID and stores it in the
    logging context so logging.Ctx(r.Context()) carries request_id.
  - PrometheusMetrics: records api_request_duration_seconds labelled by the
    chi route pattern rather than the raw path, which keeps label
    cardinality bounded for routes like /api/alerts/{id}/resolve.

Typical stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
