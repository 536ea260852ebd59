// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordLookupFailure(t *testing.T) {
	before := testutil.ToFloat64(LookupFailures.WithLabelValues("geo"))

	ObserveLookup("geo", 10*time.Millisecond)
	if got := testutil.ToFloat64(LookupFailures.WithLabelValues("geo")); got != before {
		t.Errorf("observing latency should not count a failure: %v -> %v", before, got)
	}

	RecordLookupFailure("geo")
	if got := testutil.ToFloat64(LookupFailures.WithLabelValues("geo")); got != before+1 {
		t.Errorf("failure count = %v, want %v", got, before+1)
	}
}

func TestRecordNotification(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status string
	}{
		{"success", nil, "success"},
		{"error", errors.New("boom"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := NotificationsSent.WithLabelValues("webhook", tt.status)
			before := testutil.ToFloat64(counter)
			RecordNotification("webhook", tt.err)
			if got := testutil.ToFloat64(counter); got != before+1 {
				t.Errorf("counter = %v, want %v", got, before+1)
			}
		})
	}
}

func TestRecordAPIRequest(t *testing.T) {
	RecordAPIRequest("GET", "/api/alerts", "200", 5*time.Millisecond)
	if n := testutil.CollectAndCount(APIRequestDuration); n == 0 {
		t.Error("expected at least one histogram series")
	}
}
