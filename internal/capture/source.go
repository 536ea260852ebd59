// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

// Package capture produces batches of packet summaries for the detection
// pipeline. Packets come from a replayed pcap file or from a NATS subject
// fed by remote probes. The package also keeps a rolling buffer of recent
// packets for the live traffic views.
package capture

import (
	"context"

	"github.com/tomtom215/cyberanalyzer/internal/detection"
)

// DefaultBatchSize is the number of packets handed to the sink at once.
const DefaultBatchSize = 64

// Sink receives packet batches. The slice is owned by the sink once passed.
type Sink func(batch []detection.PacketRecord)

// Source delivers packet batches until its input ends or ctx is cancelled.
type Source interface {
	Run(ctx context.Context, sink Sink) error
}
