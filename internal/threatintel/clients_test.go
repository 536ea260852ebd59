// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package threatintel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig(url, key string) ProviderConfig {
	return ProviderConfig{
		BaseURL:         url,
		APIKey:          key,
		Timeout:         time.Second,
		RateLimit:       1000,
		RateBurst:       1000,
		BreakerFailures: 3,
		BreakerTimeout:  time.Minute,
	}
}

func TestVirusTotalClient_Reputation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ip_addresses/8.8.8.8" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-apikey") != "vt-key" {
			t.Errorf("missing api key header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"attributes":{"last_analysis_stats":{"malicious":3,"suspicious":1,"harmless":60,"undetected":10}}}}`))
	}))
	defer server.Close()

	client := NewVirusTotalClient(testConfig(server.URL+"/ip_addresses", "vt-key"))
	stats, err := client.Reputation(context.Background(), "8.8.8.8")
	if err != nil {
		t.Fatalf("Reputation() error = %v", err)
	}
	want := ReputationStats{Malicious: 3, Suspicious: 1, Harmless: 60, Undetected: 10}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestClients_MissingCredentialMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	_, err := NewVirusTotalClient(testConfig(server.URL, "")).Reputation(context.Background(), "1.1.1.1")
	if !errors.Is(err, ErrMissingCredential) {
		t.Errorf("virustotal error = %v, want ErrMissingCredential", err)
	}
	_, err = NewAbuseIPDBClient(testConfig(server.URL, "")).AbuseConfidence(context.Background(), "1.1.1.1")
	if !errors.Is(err, ErrMissingCredential) {
		t.Errorf("abuseipdb error = %v, want ErrMissingCredential", err)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no requests, got %d", calls.Load())
	}
}

func TestAbuseIPDBClient_AbuseConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ipAddress"); got != "9.9.9.9" {
			t.Errorf("ipAddress = %q", got)
		}
		if got := r.URL.Query().Get("maxAgeInDays"); got != "90" {
			t.Errorf("maxAgeInDays = %q", got)
		}
		if r.Header.Get("Key") != "abuse-key" {
			t.Errorf("missing Key header")
		}
		_, _ = w.Write([]byte(`{"data":{"abuseConfidenceScore":87}}`))
	}))
	defer server.Close()

	score, err := NewAbuseIPDBClient(testConfig(server.URL, "abuse-key")).AbuseConfidence(context.Background(), "9.9.9.9")
	if err != nil {
		t.Fatalf("AbuseConfidence() error = %v", err)
	}
	if score != 87 {
		t.Errorf("score = %d, want 87", score)
	}
}

func TestGeoClient_Geolocate(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		status   int
		wantErr  error
		wantCity string
		wantOrg  string
		wantLat  bool
	}{
		{
			name:     "full response",
			body:     `{"city":"Toronto","region":"Ontario","country_name":"Canada","latitude":43.7,"longitude":-79.4,"timezone":"America/Toronto","org":"Example"}`,
			status:   http.StatusOK,
			wantCity: "Toronto",
			wantOrg:  "Example",
			wantLat:  true,
		},
		{
			name:     "missing fields become unknown",
			body:     `{"country_name":"Canada"}`,
			status:   http.StatusOK,
			wantCity: Unknown,
			wantOrg:  Unknown,
		},
		{
			name:    "reserved address",
			body:    `{"error":true,"reason":"Reserved IP Address"}`,
			status:  http.StatusOK,
			wantErr: ErrLookupFailed,
		},
		{
			name:    "rate limited",
			body:    `{}`,
			status:  http.StatusTooManyRequests,
			wantErr: ErrUnexpectedStatus,
		},
		{
			name:    "malformed body",
			body:    `not json`,
			status:  http.StatusOK,
			wantErr: ErrLookupFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/1.2.3.4/json/" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			geo, err := NewGeoClient(testConfig(server.URL, "")).Geolocate(context.Background(), "1.2.3.4")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if geo.City != tt.wantCity || geo.Org != tt.wantOrg {
				t.Errorf("geo = %+v", geo)
			}
			if (geo.Latitude != nil) != tt.wantLat {
				t.Errorf("latitude presence = %v, want %v", geo.Latitude != nil, tt.wantLat)
			}
		})
	}
}

func TestISPClient_ISP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/5.6.7.8/json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"org":"AS15169 Google LLC"}`))
	}))
	defer server.Close()

	isp, err := NewISPClient(testConfig(server.URL, "")).ISP(context.Background(), "5.6.7.8")
	if err != nil {
		t.Fatalf("ISP() error = %v", err)
	}
	if isp != "AS15169 Google LLC" {
		t.Errorf("isp = %q", isp)
	}
}

func TestProvider_TimeoutIsLookupFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	cfg := testConfig(server.URL, "")
	cfg.Timeout = 50 * time.Millisecond
	_, err := NewISPClient(cfg).ISP(context.Background(), "5.6.7.8")
	if !errors.Is(err, ErrLookupFailed) {
		t.Errorf("error = %v, want ErrLookupFailed", err)
	}
}

func TestProvider_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewISPClient(testConfig(server.URL, ""))
	for i := 0; i < 3; i++ {
		if _, err := client.ISP(context.Background(), "1.1.1.1"); !errors.Is(err, ErrUnexpectedStatus) {
			t.Fatalf("call %d: error = %v, want ErrUnexpectedStatus", i, err)
		}
	}

	_, err := client.ISP(context.Background(), "1.1.1.1")
	if !errors.Is(err, ErrLookupFailed) {
		t.Errorf("open breaker error = %v, want ErrLookupFailed", err)
	}
	if calls.Load() != 3 {
		t.Errorf("server calls = %d, want 3 (fourth rejected by breaker)", calls.Load())
	}
}
