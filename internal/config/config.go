// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

// Package config loads CyberAnalyzer configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values for every setting
//  2. Config File: optional YAML file (config.yaml or CONFIG_PATH)
//  3. Environment Variables: explicit mapping table, highest priority
//
// Config is immutable after Load and safe for concurrent reads.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Logging    LoggingConfig    `koanf:"logging"`
	Detection  DetectionConfig  `koanf:"detection"`
	Enrichment EnrichmentConfig `koanf:"enrichment"`
	Alerts     AlertsConfig     `koanf:"alerts"`
	Store      StoreConfig      `koanf:"store"`
	Capture    CaptureConfig    `koanf:"capture"`
	NATS       NATSConfig       `koanf:"nats"`
	Notify     NotifyConfig     `koanf:"notify"`
	Server     ServerConfig     `koanf:"server"`
	Pipeline   PipelineConfig   `koanf:"pipeline"`
}

// LoggingConfig controls the zerolog logger.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// DetectionConfig holds the anomaly detector thresholds.
//
// Environment Variables:
//   - DETECTION_LARGE_PACKET_FACTOR (default: 3)
//   - DETECTION_PORT_SCAN_THRESHOLD (default: 50)
//   - DETECTION_BURST_THRESHOLD (default: 100)
//   - DETECTION_BURST_WINDOW (default: 10s)
//   - DETECTION_ENTROPY_THRESHOLD (default: 7.5)
//   - DETECTION_MAX_SOURCES: 0 keeps every source forever (default: 0)
type DetectionConfig struct {
	LargePacketFactor float64       `koanf:"large_packet_factor" validate:"gt=0"`
	PortScanThreshold int           `koanf:"port_scan_threshold" validate:"min=1"`
	BurstThreshold    int           `koanf:"burst_threshold" validate:"min=1"`
	BurstWindow       time.Duration `koanf:"burst_window" validate:"gt=0"`
	EntropyThreshold  float64       `koanf:"entropy_threshold" validate:"gte=0,lte=8"`
	MaxSources        int           `koanf:"max_sources" validate:"min=0"`
	WindowShards      int           `koanf:"window_shards" validate:"min=1,max=1024"`
}

// EnrichmentConfig configures the threat intelligence providers.
// A provider without an API key is skipped and contributes a neutral value.
type EnrichmentConfig struct {
	VirusTotalAPIKey  string        `koanf:"virustotal_api_key"`
	VirusTotalURL     string        `koanf:"virustotal_url" validate:"url"`
	VirusTotalTimeout time.Duration `koanf:"virustotal_timeout" validate:"gt=0"`
	AbuseIPDBAPIKey   string        `koanf:"abuseipdb_api_key"`
	AbuseIPDBURL      string        `koanf:"abuseipdb_url" validate:"url"`
	AbuseIPDBTimeout  time.Duration `koanf:"abuseipdb_timeout" validate:"gt=0"`
	GeoURL            string        `koanf:"geo_url" validate:"url"`
	GeoTimeout        time.Duration `koanf:"geo_timeout" validate:"gt=0"`
	ISPURL            string        `koanf:"isp_url" validate:"url"`
	ISPTimeout        time.Duration `koanf:"isp_timeout" validate:"gt=0"`

	// GeoCacheSize of 0 keeps every successful geolocation forever.
	GeoCacheSize int `koanf:"geo_cache_size" validate:"min=0"`

	// Per-provider request rate and burst.
	RateLimit float64 `koanf:"rate_limit" validate:"gt=0"`
	RateBurst int     `koanf:"rate_burst" validate:"min=1"`

	// Circuit breaker opens after BreakerFailures consecutive failures and
	// stays open for BreakerTimeout.
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"min=1"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// AlertsConfig sizes the in-memory recent alert cache.
type AlertsConfig struct {
	CacheSize int `koanf:"cache_size" validate:"min=1"`
	ListLimit int `koanf:"list_limit" validate:"min=1"`
}

// StoreConfig selects the durable alert store.
//
// Backends:
//   - badger: embedded key-value store (default)
//   - duckdb: embedded analytical database
//   - none: alerts live only in the recent cache
type StoreConfig struct {
	Backend  string `koanf:"backend" validate:"oneof=badger duckdb none"`
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// CaptureConfig selects where packet batches come from.
type CaptureConfig struct {
	Source     string `koanf:"source" validate:"oneof=none pcap nats"`
	PcapPath   string `koanf:"pcap_path"`
	BatchSize  int    `koanf:"batch_size" validate:"min=1"`
	BufferSize int    `koanf:"buffer_size" validate:"min=1"`
}

// NATSConfig holds the NATS connection used by the capture source and the
// alert notifier.
type NATSConfig struct {
	URL           string `koanf:"url"`
	PacketSubject string `koanf:"packet_subject" validate:"required"`
	AlertSubject  string `koanf:"alert_subject" validate:"required"`
}

// NotifyConfig enables alert notification channels.
type NotifyConfig struct {
	WebSocket        bool          `koanf:"websocket"`
	NATS             bool          `koanf:"nats"`
	WebhookURL       string        `koanf:"webhook_url" validate:"omitempty,url"`
	WebhookRateLimit time.Duration `koanf:"webhook_rate_limit" validate:"min=0"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout       time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout      time.Duration `koanf:"write_timeout" validate:"gt=0"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// PipelineConfig sizes the queue between detection and enrichment.
type PipelineConfig struct {
	QueueSize int `koanf:"queue_size" validate:"min=1"`
	Workers   int `koanf:"workers" validate:"min=1,max=256"`
}
