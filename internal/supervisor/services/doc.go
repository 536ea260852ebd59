// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

/*
Package services provides suture.Service wrappers for the analyzer's
long-lived components.

Each wrapper translates a component lifecycle into suture's
Serve(ctx) error contract and names itself through fmt.Stringer so
sutureslog events identify it.

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Configurable shutdown timeout for draining connections

Pipeline (PipelineService):
  - Delegates to pipeline.Pipeline.RunWithContext
  - Queued events are drained before Serve returns

Capture (CaptureService):
  - Runs a capture.Source into the pipeline sink
  - A source that reaches the end of its input (a finished pcap replay)
    is not restarted

WebSocket Hub (WebSocketHubService):
  - Delegates to notify.Hub.RunWithContext
  - Connected dashboards are closed on shutdown

NATS Connection (NATSConnService):
  - Drains the shared connection on shutdown so in-flight alert
    publishes are flushed
*/
package services
