// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

// Package threatintel enriches source addresses with reputation, abuse
// confidence, geolocation and ISP data from external providers and derives a
// threat score and severity.
//
// Every provider call is bounded by its own timeout, rate limiter and
// circuit breaker. A failed or unavailable provider degrades to a neutral
// value instead of failing the enrichment.
package threatintel

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrLookupFailed wraps network, decoding and provider-side failures.
	ErrLookupFailed = errors.New("threat intel lookup failed")

	// ErrMissingCredential is returned when a provider has no API key.
	// No request is made.
	ErrMissingCredential = errors.New("missing provider credential")

	// ErrUnexpectedStatus is returned for non-200 provider responses.
	ErrUnexpectedStatus = errors.New("unexpected provider status")

	// ErrInternal is returned when enrichment itself breaks, not a provider.
	ErrInternal = errors.New("internal enrichment error")

	// ErrInvalidInput is returned for an empty address.
	ErrInvalidInput = errors.New("invalid enrichment input")
)

// Unknown is the neutral value for missing text fields.
const Unknown = "unknown"

// Severity ranks an enriched source.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Severity breakpoints. Scores range to 100, so almost every non-zero score
// ranks high; the breakpoints are kept for compatibility with stored alerts.
const (
	HighSeverityScore   = 7
	MediumSeverityScore = 4
)

// SeverityForScore maps a threat score to a severity.
func SeverityForScore(score int) Severity {
	switch {
	case score >= HighSeverityScore:
		return SeverityHigh
	case score >= MediumSeverityScore:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ComputeScore combines reputation detections and abuse confidence into a
// score clamped to [0, 100].
func ComputeScore(rep ReputationStats, abuse int) int {
	return max(0, min(100, (rep.Malicious+rep.Suspicious)*10+abuse))
}

// ReputationStats is the last analysis summary from the reputation provider.
type ReputationStats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Harmless   int `json:"harmless"`
	Undetected int `json:"undetected"`
}

// GeoInfo is a geolocation result. Coordinates are nil when unknown.
type GeoInfo struct {
	City      string   `json:"city"`
	Region    string   `json:"region"`
	Country   string   `json:"country"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Timezone  string   `json:"timezone"`
	Org       string   `json:"org"`
}

// UnknownGeo is the neutral geolocation.
func UnknownGeo() GeoInfo {
	return GeoInfo{
		City:     Unknown,
		Region:   Unknown,
		Country:  Unknown,
		Timezone: Unknown,
		Org:      Unknown,
	}
}

// Summary returns "city, region, country" with leading and trailing
// separators trimmed.
func (g GeoInfo) Summary() string {
	return strings.Trim(g.City+", "+g.Region+", "+g.Country, ", ")
}

// ReputationLookup queries a malware reputation provider.
type ReputationLookup interface {
	Reputation(ctx context.Context, ip string) (ReputationStats, error)
}

// AbuseLookup queries an abuse confidence provider (0-100).
type AbuseLookup interface {
	AbuseConfidence(ctx context.Context, ip string) (int, error)
}

// GeoLookup queries a geolocation provider.
type GeoLookup interface {
	Geolocate(ctx context.Context, ip string) (GeoInfo, error)
}

// ISPLookup returns the organisation announcing an address.
type ISPLookup interface {
	ISP(ctx context.Context, ip string) (string, error)
}

// Result is the outcome of enriching one address.
type Result struct {
	Score      int             `json:"threat_score"`
	Severity   Severity        `json:"severity"`
	Geo        GeoInfo         `json:"geo"`
	GeoSummary string          `json:"geo_summary"`
	ISP        string          `json:"isp"`
	Reputation ReputationStats `json:"reputation"`
	AbuseScore int             `json:"abuse_score"`
}
