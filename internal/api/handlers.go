// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/cyberanalyzer/internal/alerts"
	"github.com/tomtom215/cyberanalyzer/internal/capture"
	"github.com/tomtom215/cyberanalyzer/internal/detection"
	"github.com/tomtom215/cyberanalyzer/internal/logging"
	"github.com/tomtom215/cyberanalyzer/internal/pipeline"
)

// MaxAlertLimit caps ?limit= on the alert list.
const MaxAlertLimit = 1000

// AlertService is satisfied by *alerts.Aggregator.
type AlertService interface {
	List(ctx context.Context, limit int) []alerts.Record
	Resolve(ctx context.Context, id string) error
	InsertTest(ctx context.Context) (*alerts.Record, error)
	CacheLen() int
}

// TrafficView is satisfied by *capture.Buffer.
type TrafficView interface {
	Live(n int) []detection.PacketRecord
	Summary(n int) capture.Summary
	Len() int
}

// PipelineStats is satisfied by *pipeline.Pipeline.
type PipelineStats interface {
	Stats() pipeline.Stats
}

// DetectorControl is satisfied by *detection.Detector.
type DetectorControl interface {
	Stats() detection.Stats
	ResetWindows()
}

// ClientCounter is satisfied by *notify.Hub.
type ClientCounter interface {
	ClientCount() int
}

// Handler serves the alert and traffic endpoints.
type Handler struct {
	alerts    AlertService
	traffic   TrafficView
	pipeline  PipelineStats
	hub       ClientCounter
	detector  DetectorControl
	startTime time.Time
}

// NewHandler creates a handler. traffic, pipeline and hub may be nil.
func NewHandler(alertSvc AlertService, traffic TrafficView, stats PipelineStats, hub ClientCounter) *Handler {
	return &Handler{
		alerts:    alertSvc,
		traffic:   traffic,
		pipeline:  stats,
		hub:       hub,
		startTime: time.Now(),
	}
}

// SetDetector enables detector stats in /healthz and the window reset
// route.
func (h *Handler) SetDetector(d DetectorControl) {
	h.detector = d
}

// ListAlerts returns persisted and cached alerts, newest first.
//
//	GET /api/alerts?limit=50
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"), MaxAlertLimit)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	records := h.alerts.List(r.Context(), limit)
	if records == nil {
		records = []alerts.Record{}
	}
	respondJSON(w, http.StatusOK, records)
}

// ResolveAlert marks an alert resolved.
//
//	POST /api/alerts/{id}/resolve
func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "alert id is required")
		return
	}

	err := h.alerts.Resolve(r.Context(), id)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "id": id})
	case errors.Is(err, alerts.ErrNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "alert not found")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("alert_id", id).Msg("Failed to resolve alert")
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "failed to resolve alert")
	}
}

// InsertTestAlert stores a synthetic alert for dashboard development.
//
//	POST /api/alerts/test
func (h *Handler) InsertTestAlert(w http.ResponseWriter, r *http.Request) {
	rec, err := h.alerts.InsertTest(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to insert test alert")
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "failed to insert test alert")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "alert": rec})
}

// LiveTraffic returns the most recent packets, oldest first.
//
//	GET /api/traffic/live?limit=20
func (h *Handler) LiveTraffic(w http.ResponseWriter, r *http.Request) {
	if h.traffic == nil {
		respondJSON(w, http.StatusOK, []detection.PacketRecord{})
		return
	}
	n, err := parseLimit(r.URL.Query().Get("limit"), capture.DefaultBufferSize)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	if n == 0 {
		n = capture.DefaultLiveCount
	}
	packets := h.traffic.Live(n)
	if packets == nil {
		packets = []detection.PacketRecord{}
	}
	respondJSON(w, http.StatusOK, packets)
}

// TrafficSummary returns the top talkers and protocols in the live buffer.
//
//	GET /api/traffic/summary
func (h *Handler) TrafficSummary(w http.ResponseWriter, _ *http.Request) {
	if h.traffic == nil {
		respondJSON(w, http.StatusOK, capture.Summary{TopTalkers: []capture.Count{}, TopProtocols: []capture.Count{}})
		return
	}
	respondJSON(w, http.StatusOK, h.traffic.Summary(capture.DefaultTopN))
}

// ResetDetection discards per-source port sets and burst windows.
//
//	POST /api/detection/reset
func (h *Handler) ResetDetection(w http.ResponseWriter, r *http.Request) {
	before := h.detector.Stats().SourcesTracked
	h.detector.ResetWindows()
	logging.Ctx(r.Context()).Info().Int("sources_cleared", before).Msg("Detection windows reset")
	respondJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "sources_cleared": before})
}

// HealthStatus is the /healthz body.
type HealthStatus struct {
	Status           string           `json:"status"`
	UptimeSeconds    float64          `json:"uptime_seconds"`
	CachedAlerts     int              `json:"cached_alerts"`
	BufferedPackets  int              `json:"buffered_packets"`
	WebSocketClients int              `json:"websocket_clients"`
	Pipeline         *pipeline.Stats  `json:"pipeline,omitempty"`
	Detector         *detection.Stats `json:"detector,omitempty"`
}

// Health reports liveness and a few counters.
//
//	GET /healthz
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	status := HealthStatus{
		Status:        "ok",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		CachedAlerts:  h.alerts.CacheLen(),
	}
	if h.traffic != nil {
		status.BufferedPackets = h.traffic.Len()
	}
	if h.hub != nil {
		status.WebSocketClients = h.hub.ClientCount()
	}
	if h.pipeline != nil {
		stats := h.pipeline.Stats()
		status.Pipeline = &stats
	}
	if h.detector != nil {
		stats := h.detector.Stats()
		status.Detector = &stats
	}
	respondJSON(w, http.StatusOK, status)
}

// parseLimit accepts an empty value (0, meaning default) or an integer in
// [1, maxLimit]. Larger values are clamped.
func parseLimit(raw string, maxLimit int) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	if n > maxLimit {
		n = maxLimit
	}
	return n, nil
}
