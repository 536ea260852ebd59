// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package capture

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/tomtom215/cyberanalyzer/internal/detection"
	"github.com/tomtom215/cyberanalyzer/internal/logging"
)

// DefaultPacketSubject matches every subject probes publish packets on.
const DefaultPacketSubject = "packets.>"

// timeNow stamps records that arrive without a timestamp.
var timeNow = func() time.Time { return time.Now().UTC() }

// MessageSubscriber delivers raw message payloads for a subject until ctx
// is cancelled, then closes the channel.
type MessageSubscriber interface {
	Subscribe(ctx context.Context, subject string) (<-chan []byte, error)
}

// NATSSource consumes JSON packet records published by remote probes. A
// message holds either one record or an array of records.
type NATSSource struct {
	sub     MessageSubscriber
	subject string
}

// NewNATSSource creates a source reading subject through sub.
func NewNATSSource(sub MessageSubscriber, subject string) *NATSSource {
	if subject == "" {
		subject = DefaultPacketSubject
	}
	return &NATSSource{sub: sub, subject: subject}
}

// Run hands every decoded message to sink as one batch. Malformed messages
// are logged and dropped. It returns when ctx is cancelled.
func (s *NATSSource) Run(ctx context.Context, sink Sink) error {
	msgs, err := s.sub.Subscribe(ctx, s.subject)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.subject, err)
	}

	logging.Info().Str("subject", s.subject).Msg("Consuming packets from NATS")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-msgs:
			if !ok {
				return ctx.Err()
			}
			batch, err := DecodeBatch(data)
			if err != nil {
				logging.Warn().Err(err).Str("subject", s.subject).Msg("Dropping malformed packet message")
				continue
			}
			if len(batch) > 0 {
				sink(batch)
			}
		}
	}
}

// DecodeBatch decodes a JSON packet record or array of records. Records
// failing validation are dropped.
func DecodeBatch(data []byte) ([]detection.PacketRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var batch []detection.PacketRecord
	if data[0] == '[' {
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("decode packet batch: %w", err)
		}
	} else {
		var rec detection.PacketRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode packet: %w", err)
		}
		batch = []detection.PacketRecord{rec}
	}

	valid := batch[:0]
	for i := range batch {
		if err := batch[i].Validate(); err != nil {
			logging.Debug().Err(err).Str("src", batch[i].Src).Msg("Dropping invalid packet record")
			continue
		}
		if batch[i].Timestamp.IsZero() {
			batch[i].Timestamp = timeNow()
		}
		valid = append(valid, batch[i])
	}
	return valid, nil
}

// NATSSubscriber implements MessageSubscriber on a core NATS connection.
type NATSSubscriber struct {
	conn       *nats.Conn
	bufferSize int
}

// NewNATSSubscriber wraps conn. bufferSize bounds undelivered messages.
func NewNATSSubscriber(conn *nats.Conn, bufferSize int) *NATSSubscriber {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &NATSSubscriber{conn: conn, bufferSize: bufferSize}
}

// Subscribe implements MessageSubscriber.
func (n *NATSSubscriber) Subscribe(ctx context.Context, subject string) (<-chan []byte, error) {
	msgs := make(chan *nats.Msg, n.bufferSize)
	sub, err := n.conn.ChanSubscribe(subject, msgs)
	if err != nil {
		return nil, err
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer func() {
			if err := sub.Unsubscribe(); err != nil {
				logging.Debug().Err(err).Str("subject", subject).Msg("NATS unsubscribe failed")
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-msgs:
				select {
				case out <- msg.Data:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
