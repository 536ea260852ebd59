// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// DefaultWebhookRateLimit spaces consecutive webhook deliveries.
const DefaultWebhookRateLimit = 500 * time.Millisecond

// WebhookPayload is the JSON body posted to the webhook endpoint.
type WebhookPayload struct {
	Message string `json:"message"`
}

// WebhookNotifier posts alert messages to an HTTP endpoint.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewWebhookNotifier creates a webhook notifier. A negative rateLimit
// disables spacing; zero selects DefaultWebhookRateLimit.
func NewWebhookNotifier(url string, rateLimit time.Duration) *WebhookNotifier {
	if rateLimit == 0 {
		rateLimit = DefaultWebhookRateLimit
	}
	limit := rate.Inf
	if rateLimit > 0 {
		limit = rate.Every(rateLimit)
	}
	return &WebhookNotifier{
		url:     url,
		limiter: rate.NewLimiter(limit, 1),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the notifier name.
func (n *WebhookNotifier) Name() string {
	return "webhook"
}

// Send waits for the rate limiter and posts the message.
func (n *WebhookNotifier) Send(ctx context.Context, message string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("webhook rate limit wait: %w", err)
	}

	body, err := json.Marshal(WebhookPayload{Message: message})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
