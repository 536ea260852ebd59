// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package threatintel

import "testing"

func TestSeverityForScore(t *testing.T) {
	tests := []struct {
		score int
		want  Severity
	}{
		{0, SeverityLow},
		{2, SeverityLow},
		{3, SeverityLow},
		{4, SeverityMedium},
		{5, SeverityMedium},
		{6, SeverityMedium},
		{7, SeverityHigh},
		{9, SeverityHigh},
		{100, SeverityHigh},
	}

	for _, tt := range tests {
		if got := SeverityForScore(tt.score); got != tt.want {
			t.Errorf("SeverityForScore(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestComputeScore(t *testing.T) {
	tests := []struct {
		name  string
		rep   ReputationStats
		abuse int
		want  int
	}{
		{"nothing", ReputationStats{}, 0, 0},
		{"abuse only", ReputationStats{}, 42, 42},
		{"detections weighted by ten", ReputationStats{Malicious: 2, Suspicious: 1}, 5, 35},
		{"harmless ignored", ReputationStats{Harmless: 80, Undetected: 10}, 0, 0},
		{"capped at 100", ReputationStats{Malicious: 9}, 50, 100},
		{"negative abuse floored at 0", ReputationStats{}, -5, 0},
		{"negative detections floored at 0", ReputationStats{Malicious: -3}, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeScore(tt.rep, tt.abuse); got != tt.want {
				t.Errorf("ComputeScore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGeoInfo_Summary(t *testing.T) {
	tests := []struct {
		geo  GeoInfo
		want string
	}{
		{GeoInfo{City: "Toronto", Region: "Ontario", Country: "Canada"}, "Toronto, Ontario, Canada"},
		{UnknownGeo(), "unknown, unknown, unknown"},
		{GeoInfo{Country: "Canada"}, "Canada"},
		{GeoInfo{City: "Paris"}, "Paris"},
		{GeoInfo{}, ""},
	}

	for _, tt := range tests {
		if got := tt.geo.Summary(); got != tt.want {
			t.Errorf("Summary() = %q, want %q", got, tt.want)
		}
	}
}
