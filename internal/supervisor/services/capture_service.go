// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/cyberanalyzer/internal/capture"
	"github.com/tomtom215/cyberanalyzer/internal/logging"
)

// CaptureService feeds a capture source into a sink, usually
// Pipeline.Submit.
type CaptureService struct {
	source capture.Source
	sink   capture.Sink
	name   string
}

// NewCaptureService wraps source. kind names the source in logs ("pcap",
// "nats").
func NewCaptureService(kind string, source capture.Source, sink capture.Sink) *CaptureService {
	return &CaptureService{
		source: source,
		sink:   sink,
		name:   "capture-" + kind,
	}
}

// Serve runs the source. A source that returns nil has exhausted its input
// and is removed from the supervisor instead of being replayed.
func (c *CaptureService) Serve(ctx context.Context) error {
	err := c.source.Run(ctx, c.sink)
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case err == nil:
		logging.Info().Str("service", c.name).Msg("Capture source finished")
		return suture.ErrDoNotRestart
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%s: %w", c.name, err)
	}
}

func (c *CaptureService) String() string {
	return c.name
}
