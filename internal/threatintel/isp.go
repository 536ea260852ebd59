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

// ISPClient implements ISPLookup with ipinfo.io.
type ISPClient struct {
	p *provider
}

type ipinfoResponse struct {
	Org string `json:"org"`
}

// NewISPClient creates a client. BaseURL defaults to https://ipinfo.io and
// Timeout to 3s. APIKey is optional and sent as a bearer token.
func NewISPClient(cfg ProviderConfig) *ISPClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://ipinfo.io"
	}
	cfg.applyDefaults(3 * time.Second)
	return &ISPClient{p: newProvider("isp", cfg)}
}

// ISP returns the announcing organisation for ip, or "unknown".
func (c *ISPClient) ISP(ctx context.Context, ip string) (string, error) {
	endpoint := strings.TrimRight(c.p.cfg.BaseURL, "/") + "/" + url.PathEscape(ip) + "/json"

	var headers map[string]string
	if c.p.cfg.APIKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + c.p.cfg.APIKey}
	}

	body, err := c.p.get(ctx, endpoint, headers)
	if err != nil {
		return "", err
	}

	var resp ipinfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: isp: decode: %w", ErrLookupFailed, err)
	}
	return orUnknown(resp.Org), nil
}
