// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package threatintel

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// VirusTotalClient implements ReputationLookup with the VirusTotal v3 API.
type VirusTotalClient struct {
	p *provider
}

type virusTotalResponse struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats ReputationStats `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// NewVirusTotalClient creates a client. BaseURL defaults to the public
// ip_addresses endpoint and Timeout to 5s.
func NewVirusTotalClient(cfg ProviderConfig) *VirusTotalClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.virustotal.com/api/v3/ip_addresses"
	}
	cfg.applyDefaults(5 * time.Second)
	return &VirusTotalClient{p: newProvider("virustotal", cfg)}
}

// Reputation returns the last analysis stats for ip.
func (c *VirusTotalClient) Reputation(ctx context.Context, ip string) (ReputationStats, error) {
	if c.p.cfg.APIKey == "" {
		return ReputationStats{}, fmt.Errorf("%w: virustotal", ErrMissingCredential)
	}

	endpoint := strings.TrimRight(c.p.cfg.BaseURL, "/") + "/" + url.PathEscape(ip)
	body, err := c.p.get(ctx, endpoint, map[string]string{"x-apikey": c.p.cfg.APIKey})
	if err != nil {
		return ReputationStats{}, err
	}

	var resp virusTotalResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ReputationStats{}, fmt.Errorf("%w: virustotal: decode: %w", ErrLookupFailed, err)
	}
	return resp.Data.Attributes.LastAnalysisStats, nil
}
