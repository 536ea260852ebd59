// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package notify

import (
	"context"
	"fmt"
)

// DefaultAlertSubject is the subject alert messages are published on.
const DefaultAlertSubject = "alerts.new"

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes alert messages as raw UTF-8 payloads.
type NATSNotifier struct {
	pub     Publisher
	subject string
}

// NewNATSNotifier creates a notifier publishing on subject, or
// DefaultAlertSubject when subject is empty.
func NewNATSNotifier(pub Publisher, subject string) *NATSNotifier {
	if subject == "" {
		subject = DefaultAlertSubject
	}
	return &NATSNotifier{pub: pub, subject: subject}
}

// Name returns the notifier name.
func (n *NATSNotifier) Name() string {
	return "nats"
}

// Send publishes message. Publish is buffered by the NATS client so ctx is
// only checked up front.
func (n *NATSNotifier) Send(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.pub.Publish(n.subject, []byte(message)); err != nil {
		return fmt.Errorf("publish to %s: %w", n.subject, err)
	}
	return nil
}
