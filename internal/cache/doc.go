// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

// Package cache provides the bounded and keyed in-memory structures used by
// the detection and alerting stages.
//
// Data Structures:
//
//   - SourceWindows: per-source port sets and time-ordered event lists with
//     sharded locking, used for port scan and burst detection.
//   - Ring: fixed-capacity FIFO ring for the recent alert cache.
//   - LRU: generic least recently used map, used for the optional bounded
//     geolocation cache.
//
// All types are safe for concurrent use.
package cache
