// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package threatintel

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/goccy/go-json"
)

// abuseMaxAgeDays is the report window queried from AbuseIPDB.
const abuseMaxAgeDays = "90"

// AbuseIPDBClient implements AbuseLookup with the AbuseIPDB v2 check API.
type AbuseIPDBClient struct {
	p *provider
}

type abuseIPDBResponse struct {
	Data struct {
		AbuseConfidenceScore int `json:"abuseConfidenceScore"`
	} `json:"data"`
}

// NewAbuseIPDBClient creates a client. BaseURL defaults to the public check
// endpoint and Timeout to 5s.
func NewAbuseIPDBClient(cfg ProviderConfig) *AbuseIPDBClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.abuseipdb.com/api/v2/check"
	}
	cfg.applyDefaults(5 * time.Second)
	return &AbuseIPDBClient{p: newProvider("abuseipdb", cfg)}
}

// AbuseConfidence returns the 0-100 abuse confidence score for ip.
func (c *AbuseIPDBClient) AbuseConfidence(ctx context.Context, ip string) (int, error) {
	if c.p.cfg.APIKey == "" {
		return 0, fmt.Errorf("%w: abuseipdb", ErrMissingCredential)
	}

	q := url.Values{}
	q.Set("ipAddress", ip)
	q.Set("maxAgeInDays", abuseMaxAgeDays)

	body, err := c.p.get(ctx, c.p.cfg.BaseURL+"?"+q.Encode(), map[string]string{"Key": c.p.cfg.APIKey})
	if err != nil {
		return 0, err
	}

	var resp abuseIPDBResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("%w: abuseipdb: decode: %w", ErrLookupFailed, err)
	}
	return resp.Data.AbuseConfidenceScore, nil
}
