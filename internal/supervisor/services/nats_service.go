// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package services

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/cyberanalyzer/internal/logging"
)

// NATSConn is satisfied by *nats.Conn.
type NATSConn interface {
	Drain() error
	IsClosed() bool
}

// NATSConnService owns the shared NATS connection used for packet
// subscriptions and alert publishing.
type NATSConnService struct {
	conn         NATSConn
	pollInterval time.Duration
	name         string
}

// NewNATSConnService wraps conn.
func NewNATSConnService(conn NATSConn) *NATSConnService {
	return &NATSConnService{
		conn:         conn,
		pollInterval: time.Second,
		name:         "nats-connection",
	}
}

// Serve waits for ctx and drains the connection. The client library
// reconnects on its own; a connection that ends up closed is reported once
// and not restarted.
func (s *NATSConnService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if !s.conn.IsClosed() {
				if err := s.conn.Drain(); err != nil {
					logging.Warn().Err(err).Msg("NATS drain failed")
				}
			}
			return ctx.Err()
		case <-ticker.C:
			if s.conn.IsClosed() {
				logging.Error().Msg("NATS connection closed")
				return suture.ErrDoNotRestart
			}
		}
	}
}

func (s *NATSConnService) String() string {
	return s.name
}
