// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/cyberanalyzer/internal/logging"
)

func serveWithRequestID(t *testing.T, header string) (contextID, responseID string) {
	t.Helper()
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contextID = logging.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
	if header != "" {
		req.Header.Set(RequestIDHeader, header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return contextID, rec.Header().Get(RequestIDHeader)
}

func TestRequestID_GeneratesNewID(t *testing.T) {
	contextID, responseID := serveWithRequestID(t, "")

	if _, err := uuid.Parse(responseID); err != nil {
		t.Errorf("response X-Request-ID %q is not a UUID: %v", responseID, err)
	}
	if contextID != responseID {
		t.Errorf("context ID %q != response ID %q", contextID, responseID)
	}
}

func TestRequestID_UpstreamHeader(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantKeep bool
	}{
		{"well formed", "edge-proxy-1234", true},
		{"uuid", "0190a2c4-1111-7000-8000-000000000000", true},
		{"too long", strings.Repeat("a", maxRequestIDLength+1), false},
		{"control characters", "abc\ndef", false},
		{"spaces", "abc def", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contextID, responseID := serveWithRequestID(t, tt.header)
			if kept := responseID == tt.header; kept != tt.wantKeep {
				t.Errorf("kept upstream ID = %v, want %v (got %q)", kept, tt.wantKeep, responseID)
			}
			if contextID != responseID {
				t.Errorf("context ID %q != response ID %q", contextID, responseID)
			}
		})
	}
}
