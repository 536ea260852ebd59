// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

/*
Package supervisor runs the long-lived services of the analyzer under a
suture v4 supervisor tree.

# Overview

Services are grouped into layers so a failing capture source restarts on
its own without dropping dashboard connections or in-flight alerts:

	RootSupervisor ("cyberanalyzer")
	├── IngestSupervisor ("ingest-layer")
	│   └── CaptureService (pcap replay or NATS subscription)
	├── PipelineSupervisor ("pipeline-layer")
	│   └── PipelineService (detection workers)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocketHubService (if websocket notifications are enabled)
	│   └── NATSConnService (if a NATS URL is configured)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Events (start, stop, panic, backoff) are logged through sutureslog using
the slog bridge from internal/logging.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddPipelineService(services.NewPipelineService(p))
	tree.AddIngestService(services.NewCaptureService("pcap", src, p.Submit))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = tree.Serve(ctx)

# Shutdown

Canceling the context stops the layers. Each service gets
TreeConfig.ShutdownTimeout to return; UnstoppedServiceReport lists any that
did not.

See package services for the wrappers.
*/
package supervisor
