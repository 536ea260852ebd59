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

// GeoClient implements GeoLookup with ipapi.co. No API key is required.
type GeoClient struct {
	p *provider
}

type ipapiResponse struct {
	City        string   `json:"city"`
	Region      string   `json:"region"`
	CountryName string   `json:"country_name"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Timezone    string   `json:"timezone"`
	Org         string   `json:"org"`

	// ipapi.co answers 200 with error set for reserved or bogon addresses.
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// NewGeoClient creates a client. BaseURL defaults to https://ipapi.co and
// Timeout to 4s.
func NewGeoClient(cfg ProviderConfig) *GeoClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://ipapi.co"
	}
	cfg.applyDefaults(4 * time.Second)
	return &GeoClient{p: newProvider("geo", cfg)}
}

// Geolocate returns location data for ip. Missing text fields are "unknown".
func (c *GeoClient) Geolocate(ctx context.Context, ip string) (GeoInfo, error) {
	endpoint := strings.TrimRight(c.p.cfg.BaseURL, "/") + "/" + url.PathEscape(ip) + "/json/"
	body, err := c.p.get(ctx, endpoint, nil)
	if err != nil {
		return GeoInfo{}, err
	}

	var resp ipapiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return GeoInfo{}, fmt.Errorf("%w: geo: decode: %w", ErrLookupFailed, err)
	}
	if resp.Error {
		return GeoInfo{}, fmt.Errorf("%w: geo: %s", ErrLookupFailed, resp.Reason)
	}

	return GeoInfo{
		City:      orUnknown(resp.City),
		Region:    orUnknown(resp.Region),
		Country:   orUnknown(resp.CountryName),
		Latitude:  resp.Latitude,
		Longitude: resp.Longitude,
		Timezone:  orUnknown(resp.Timezone),
		Org:       orUnknown(resp.Org),
	}, nil
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}
