// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

// Package detection classifies batches of packet summaries and emits
// anomaly events.
//
// Detection Architecture:
//
//	PacketRecord batch -> Detector -> []AnomalyEvent -> pipeline queue
//	                        |
//	                        v
//	              cache.SourceWindows (per-source ports and timestamps)
//
// Supported Heuristics, evaluated in this order for every batch:
//   - Large Packet: length above LargePacketFactor times the batch mean
//   - Port Scan: a source has contacted more than PortScanThreshold distinct
//     destination ports since it was first seen
//   - Traffic Burst: more than BurstThreshold packets from a source inside
//     the burst window
//   - High Entropy Payload: Shannon entropy of the payload sample above
//     EntropyThreshold bits per byte
//
// Detection never fails and never deduplicates: a source above the port scan
// threshold produces an event for every further packet. Deduplication
// happens at the alert layer.
package detection
