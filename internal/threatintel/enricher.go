// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package threatintel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tomtom215/cyberanalyzer/internal/cache"
	"github.com/tomtom215/cyberanalyzer/internal/config"
	"github.com/tomtom215/cyberanalyzer/internal/logging"
	"github.com/tomtom215/cyberanalyzer/internal/metrics"
)

// geoCache stores successful geolocations per address.
type geoCache interface {
	Get(ip string) (GeoInfo, bool)
	Add(ip string, geo GeoInfo)
	Len() int
}

// mapGeoCache never evicts.
type mapGeoCache struct {
	mu    sync.RWMutex
	items map[string]GeoInfo
}

func (c *mapGeoCache) Get(ip string) (GeoInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	geo, ok := c.items[ip]
	return geo, ok
}

func (c *mapGeoCache) Add(ip string, geo GeoInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[ip] = geo
}

func (c *mapGeoCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Enricher combines the four lookups into a scored Result.
type Enricher struct {
	reputation ReputationLookup
	abuse      AbuseLookup
	geo        GeoLookup
	isp        ISPLookup
	geoCache   geoCache
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithGeoCacheSize bounds the geolocation cache with LRU eviction.
// Zero or less keeps every address for the life of the process.
func WithGeoCacheSize(n int) EnricherOption {
	return func(e *Enricher) {
		if n > 0 {
			e.geoCache = cache.NewLRU[string, GeoInfo](n)
		}
	}
}

// NewEnricher creates an Enricher. Any lookup may be nil, in which case it
// always contributes its neutral value.
func NewEnricher(rep ReputationLookup, abuse AbuseLookup, geo GeoLookup, isp ISPLookup, opts ...EnricherOption) *Enricher {
	e := &Enricher{
		reputation: rep,
		abuse:      abuse,
		geo:        geo,
		isp:        isp,
		geoCache:   &mapGeoCache{items: make(map[string]GeoInfo)},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewFromConfig builds an Enricher backed by the HTTP provider clients.
func NewFromConfig(cfg *config.EnrichmentConfig) *Enricher {
	base := ProviderConfig{
		RateLimit:       cfg.RateLimit,
		RateBurst:       cfg.RateBurst,
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  cfg.BreakerTimeout,
	}

	vt := base
	vt.BaseURL, vt.APIKey, vt.Timeout = cfg.VirusTotalURL, cfg.VirusTotalAPIKey, cfg.VirusTotalTimeout
	abuse := base
	abuse.BaseURL, abuse.APIKey, abuse.Timeout = cfg.AbuseIPDBURL, cfg.AbuseIPDBAPIKey, cfg.AbuseIPDBTimeout
	geo := base
	geo.BaseURL, geo.Timeout = cfg.GeoURL, cfg.GeoTimeout
	isp := base
	isp.BaseURL, isp.Timeout = cfg.ISPURL, cfg.ISPTimeout

	return NewEnricher(
		NewVirusTotalClient(vt),
		NewAbuseIPDBClient(abuse),
		NewGeoClient(geo),
		NewISPClient(isp),
		WithGeoCacheSize(cfg.GeoCacheSize),
	)
}

// Enrich looks up ip with every provider concurrently and scores the result.
// Provider failures are logged and replaced by neutral values; an error is
// returned only when enrichment itself cannot run.
func (e *Enricher) Enrich(ctx context.Context, ip string) (Result, error) {
	if ip == "" {
		return Result{}, fmt.Errorf("%w: empty address", ErrInvalidInput)
	}

	var (
		rep     ReputationStats
		abuse   int
		geo     = UnknownGeo()
		isp     = Unknown
		wg      sync.WaitGroup
		panicMu sync.Mutex
		panics  []error
	)

	run := func(provider string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panicMu.Lock()
					panics = append(panics, fmt.Errorf("%w: %s lookup panicked: %v", ErrInternal, provider, r))
					panicMu.Unlock()
				}
			}()
			if err := fn(); err != nil {
				logLookupFailure(ctx, provider, ip, err)
			}
		}()
	}

	if e.reputation != nil {
		run("virustotal", func() error {
			stats, err := e.reputation.Reputation(ctx, ip)
			if err == nil {
				rep = stats
			}
			return err
		})
	}
	if e.abuse != nil {
		run("abuseipdb", func() error {
			score, err := e.abuse.AbuseConfidence(ctx, ip)
			if err == nil {
				abuse = score
			}
			return err
		})
	}
	if e.geo != nil {
		run("geo", func() error {
			g, err := e.geolocate(ctx, ip)
			if err == nil {
				geo = g
			}
			return err
		})
	}
	if e.isp != nil {
		run("isp", func() error {
			name, err := e.isp.ISP(ctx, ip)
			if err == nil && name != "" {
				isp = name
			}
			return err
		})
	}
	wg.Wait()

	if len(panics) > 0 {
		return Result{}, errors.Join(panics...)
	}

	score := ComputeScore(rep, abuse)
	return Result{
		Score:      score,
		Severity:   SeverityForScore(score),
		Geo:        geo,
		GeoSummary: geo.Summary(),
		ISP:        isp,
		Reputation: rep,
		AbuseScore: abuse,
	}, nil
}

// geolocate serves from the cache and stores successful lookups only.
func (e *Enricher) geolocate(ctx context.Context, ip string) (GeoInfo, error) {
	if geo, ok := e.geoCache.Get(ip); ok {
		metrics.GeoCacheHits.Inc()
		return geo, nil
	}
	geo, err := e.geo.Geolocate(ctx, ip)
	if err != nil {
		return GeoInfo{}, err
	}
	e.geoCache.Add(ip, geo)
	return geo, nil
}

// GeoCacheLen returns the number of cached geolocations.
func (e *Enricher) GeoCacheLen() int {
	return e.geoCache.Len()
}

func logLookupFailure(ctx context.Context, provider, ip string, err error) {
	metrics.RecordLookupFailure(provider)
	if errors.Is(err, ErrMissingCredential) {
		logging.Ctx(ctx).Debug().Str("provider", provider).Msg("provider not configured, using neutral value")
		return
	}
	logging.Ctx(ctx).Warn().Err(err).Str("provider", provider).Str("ip", ip).Msg("threat intel lookup failed, using neutral value")
}
