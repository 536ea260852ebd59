// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

// Package alerts turns anomaly events into enriched, deduplicated alert
// records. Every alert is written to a durable Store and kept in a bounded
// cache of recent alerts; List merges both views.
package alerts

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/cyberanalyzer/internal/threatintel"
)

var (
	// ErrDegradedWrite is returned when an alert was cached and announced
	// but could not be persisted.
	ErrDegradedWrite = errors.New("alert not persisted")

	// ErrNotFound is returned when no stored or cached alert has the ID.
	ErrNotFound = errors.New("alert not found")
)

// Record is one alert as stored, cached and served.
type Record struct {
	// ID is assigned by the Store and empty until the alert is persisted.
	ID          string               `json:"id,omitempty"`
	Type        string               `json:"type"`
	Details     map[string]any       `json:"details"`
	CreatedAt   time.Time            `json:"created_at"`
	Resolved    bool                 `json:"resolved"`
	ThreatScore int                  `json:"threat_score"`
	GeoInfo     string               `json:"geo_info"`
	ISP         string               `json:"isp"`
	Severity    threatintel.Severity `json:"severity"`
	Src         string               `json:"src"`
	Dst         string               `json:"dst"`

	EntropyScore *float64 `json:"entropy_score,omitempty"`
	DNSQueries   string   `json:"dns_queries,omitempty"`
}

// Key identifies a record across the store and the cache. Unpersisted
// records fall back to created-at, type and source.
func (r *Record) Key() string {
	if r.ID != "" {
		return r.ID
	}
	return fmt.Sprintf("%s-%s-%s", r.CreatedAt.UTC().Format(time.RFC3339Nano), r.Type, r.Src)
}
