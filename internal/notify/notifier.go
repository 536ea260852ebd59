// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

// Package notify delivers one-line alert announcements to operators.
//
// Channels:
//   - Hub: websocket broadcast to connected dashboards
//   - WebhookNotifier: HTTP POST of {"message": ...}
//   - NATSNotifier: publish on the alert subject
//
// Multi fans a message out to every configured channel. A failing channel
// is logged and counted but never fails the alert that triggered it.
package notify

import (
	"context"

	"github.com/tomtom215/cyberanalyzer/internal/logging"
	"github.com/tomtom215/cyberanalyzer/internal/metrics"
)

// Notifier delivers a plain-text alert message.
type Notifier interface {
	Send(ctx context.Context, message string) error
	Name() string
}

// Multi sends every message to all of its notifiers.
type Multi struct {
	notifiers []Notifier
}

// NewMulti builds a fan-out notifier. Nil entries are skipped.
func NewMulti(notifiers ...Notifier) *Multi {
	m := &Multi{notifiers: make([]Notifier, 0, len(notifiers))}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Name returns the notifier name.
func (m *Multi) Name() string {
	return "multi"
}

// Len returns the number of configured channels.
func (m *Multi) Len() int {
	return len(m.notifiers)
}

// Send delivers message to each channel in order and always returns nil.
func (m *Multi) Send(ctx context.Context, message string) error {
	for _, n := range m.notifiers {
		err := n.Send(ctx, message)
		metrics.RecordNotification(n.Name(), err)
		if err != nil {
			logging.Ctx(ctx).Warn().
				Err(err).
				Str("channel", n.Name()).
				Msg("alert notification failed")
		}
	}
	return nil
}
