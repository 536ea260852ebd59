// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package threatintel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/cyberanalyzer/internal/logging"
	"github.com/tomtom215/cyberanalyzer/internal/metrics"
)

// maxResponseBytes bounds provider response bodies.
const maxResponseBytes = 1 << 20

// ProviderConfig configures one HTTP provider client.
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// RateLimit is requests per second; RateBurst the bucket size.
	RateLimit float64
	RateBurst int

	// BreakerFailures consecutive failures open the breaker for BreakerTimeout.
	BreakerFailures uint32
	BreakerTimeout  time.Duration

	// HTTPClient defaults to a client without its own timeout; the per-call
	// context deadline bounds each request.
	HTTPClient *http.Client
}

func (c *ProviderConfig) applyDefaults(timeout time.Duration) {
	if c.Timeout <= 0 {
		c.Timeout = timeout
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 4
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 4
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = 30 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
}

// provider performs rate-limited, circuit-broken GET requests for one
// external service.
type provider struct {
	name    string
	cfg     ProviderConfig
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func newProvider(name string, cfg ProviderConfig) *provider {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		// Caller cancellation says nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &provider{
		name:    name,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		breaker: cb,
	}
}

// get fetches url and returns the body of a 200 response.
func (p *provider) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	body, err := p.breaker.Execute(func() ([]byte, error) {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s rate limit: %w", ErrLookupFailed, p.name, err)
		}
		return p.do(ctx, url, headers)
	})
	metrics.ObserveLookup(p.name, time.Since(start))

	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(p.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(p.name, "rejected").Inc()
		err = fmt.Errorf("%w: %s: %w", ErrLookupFailed, p.name, err)
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(p.name, "failure").Inc()
	}
	return body, err
}

func (p *provider) do(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: create request: %w", ErrLookupFailed, p.name, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLookupFailed, p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, p.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %w", ErrLookupFailed, p.name, err)
	}
	return body, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
