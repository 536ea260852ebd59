// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tomtom215/cyberanalyzer/internal/alerts"
	"github.com/tomtom215/cyberanalyzer/internal/api"
	"github.com/tomtom215/cyberanalyzer/internal/cache"
	"github.com/tomtom215/cyberanalyzer/internal/capture"
	"github.com/tomtom215/cyberanalyzer/internal/config"
	"github.com/tomtom215/cyberanalyzer/internal/detection"
	"github.com/tomtom215/cyberanalyzer/internal/logging"
	"github.com/tomtom215/cyberanalyzer/internal/notify"
	"github.com/tomtom215/cyberanalyzer/internal/pipeline"
	"github.com/tomtom215/cyberanalyzer/internal/supervisor"
	"github.com/tomtom215/cyberanalyzer/internal/supervisor/services"
	"github.com/tomtom215/cyberanalyzer/internal/threatintel"
)

// app holds the wired components between construction and shutdown.
type app struct {
	cfg        *config.Config
	store      alerts.Store
	natsConn   *nats.Conn
	hub        *notify.Hub
	aggregator *alerts.Aggregator
	buffer     *capture.Buffer
	detector   *detection.Detector
	pipeline   *pipeline.Pipeline
	source     capture.Source
	sourceKind string
	server     *http.Server
}

// newApp wires every component from cfg. Nothing runs until supervise.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	store, err := alerts.OpenStore(ctx, &cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open alert store: %w", err)
	}
	a.store = store
	if store == nil {
		logging.Warn().Msg("Alert store disabled; alerts are kept in memory only")
	}

	if cfg.NATSRequired() {
		conn, err := connectNATS(cfg.NATS.URL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.natsConn = conn
	}

	notifiers := a.buildNotifiers()

	a.aggregator = alerts.NewAggregator(
		a.store,
		threatintel.NewFromConfig(&cfg.Enrichment),
		alerts.WithNotifier(notifiers),
		alerts.WithCacheSize(cfg.Alerts.CacheSize),
		alerts.WithListLimit(cfg.Alerts.ListLimit),
	)

	windows := cache.NewSourceWindows(
		cfg.Detection.BurstWindow,
		cache.WithShards(cfg.Detection.WindowShards),
		cache.WithMaxSources(cfg.Detection.MaxSources),
	)
	a.detector = detection.NewDetector(detectorConfig(&cfg.Detection), windows)

	a.buffer = capture.NewBuffer(cfg.Capture.BufferSize)
	a.pipeline = pipeline.New(a.detector, a.aggregator,
		pipeline.WithQueueSize(cfg.Pipeline.QueueSize),
		pipeline.WithWorkers(cfg.Pipeline.Workers),
		pipeline.WithRecorder(a.buffer),
	)

	a.source, a.sourceKind = a.buildSource()

	a.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.routes(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	return a, nil
}

func connectNATS(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("cyberanalyzer"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logging.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logging.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return conn, nil
}

func (a *app) buildNotifiers() *notify.Multi {
	var list []notify.Notifier

	if a.cfg.Notify.WebSocket {
		a.hub = notify.NewHub(a.cfg.Server.CORSOrigins)
		list = append(list, a.hub)
	}
	if a.cfg.Notify.NATS && a.natsConn != nil {
		list = append(list, notify.NewNATSNotifier(a.natsConn, a.cfg.NATS.AlertSubject))
	}
	if a.cfg.Notify.WebhookURL != "" {
		list = append(list, notify.NewWebhookNotifier(a.cfg.Notify.WebhookURL, a.cfg.Notify.WebhookRateLimit))
	}

	multi := notify.NewMulti(list...)
	logging.Info().Int("channels", multi.Len()).Msg("Alert notifiers configured")
	return multi
}

func (a *app) buildSource() (capture.Source, string) {
	switch a.cfg.Capture.Source {
	case "pcap":
		return capture.NewPcapFileSource(a.cfg.Capture.PcapPath, a.cfg.Capture.BatchSize), "pcap"
	case "nats":
		sub := capture.NewNATSSubscriber(a.natsConn, a.cfg.Pipeline.QueueSize)
		return capture.NewNATSSource(sub, a.cfg.NATS.PacketSubject), "nats"
	default:
		logging.Info().Msg("No capture source configured; detection is idle")
		return nil, ""
	}
}

func detectorConfig(c *config.DetectionConfig) detection.Config {
	d := detection.DefaultConfig()
	d.LargePacketFactor = c.LargePacketFactor
	d.PortScanThreshold = c.PortScanThreshold
	d.BurstThreshold = c.BurstThreshold
	d.EntropyThreshold = c.EntropyThreshold
	return d
}

func (a *app) routes() http.Handler {
	mwCfg := api.DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = a.cfg.Server.CORSOrigins
	mwCfg.RateLimitRequests = a.cfg.Server.RateLimitRequests
	mwCfg.RateLimitWindow = a.cfg.Server.RateLimitWindow

	var (
		clients api.ClientCounter
		ws      http.HandlerFunc
	)
	if a.hub != nil {
		clients = a.hub
		ws = a.hub.ServeWS
	}

	handler := api.NewHandler(a.aggregator, a.buffer, a.pipeline, clients)
	handler.SetDetector(a.detector)
	return api.NewRouter(handler, api.NewChiMiddleware(mwCfg), ws).SetupChi()
}

// supervise registers every long-running component with tree.
func (a *app) supervise(tree *supervisor.SupervisorTree) {
	tree.AddPipelineService(services.NewPipelineService(a.pipeline))
	if a.source != nil {
		tree.AddIngestService(services.NewCaptureService(a.sourceKind, a.source, a.pipeline.Submit))
	}
	if a.hub != nil {
		tree.AddMessagingService(services.NewWebSocketHubService(a.hub))
	}
	if a.natsConn != nil {
		tree.AddMessagingService(services.NewNATSConnService(a.natsConn))
	}
	tree.AddAPIService(services.NewHTTPServerService(a.server, a.cfg.Server.WriteTimeout))
}

// Close releases the NATS connection and the alert store.
func (a *app) Close() {
	if a.natsConn != nil && !a.natsConn.IsClosed() {
		a.natsConn.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing alert store")
		}
	}
}
