// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

/*
Package main is the entry point for the CyberAnalyzer server.

CyberAnalyzer reads packet summaries from a capture source, flags anomalous
traffic, scores the offending sources against threat intelligence providers
and serves the resulting alerts to a dashboard over HTTP and websockets.

# Application Architecture

	RootSupervisor ("cyberanalyzer")
	├── IngestSupervisor ("ingest-layer")
	│   └── Capture source (pcap replay or NATS subscription)
	├── PipelineSupervisor ("pipeline-layer")
	│   └── Detection pipeline workers
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket hub
	│   └── NATS connection
	└── APISupervisor ("api-layer")
	    └── HTTP server

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog, bridged to slog for the supervisor
 3. Alert store: BadgerDB, DuckDB or none
 4. Notifiers: websocket hub, NATS publisher, webhook
 5. Detector, aggregator and pipeline
 6. HTTP router
 7. Supervisor tree

# Configuration

Common environment variables:

	STORE_BACKEND=badger|duckdb|none
	STORE_PATH=/data/alerts
	CAPTURE_SOURCE=none|pcap|nats
	CAPTURE_PCAP_PATH=/captures/trace.pcap
	NATS_URL=nats://127.0.0.1:4222
	NOTIFY_WEBHOOK_URL=https://hooks.example/alerts
	VT_API_KEY=...
	ABUSEIPDB_API_KEY=...
	HTTP_PORT=5000

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server stops accepting
connections, queued detection events are drained, websocket clients are
closed and the alert store is closed last.
*/
package main
