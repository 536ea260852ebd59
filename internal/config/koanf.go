// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cyberanalyzer/config.yaml",
	"/etc/cyberanalyzer/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Detection: DetectionConfig{
			LargePacketFactor: 3,
			PortScanThreshold: 50,
			BurstThreshold:    100,
			BurstWindow:       10 * time.Second,
			EntropyThreshold:  7.5,
			MaxSources:        0,
			WindowShards:      32,
		},
		Enrichment: EnrichmentConfig{
			VirusTotalURL:     "https://www.virustotal.com/api/v3/ip_addresses",
			VirusTotalTimeout: 5 * time.Second,
			AbuseIPDBURL:      "https://api.abuseipdb.com/api/v2/check",
			AbuseIPDBTimeout:  5 * time.Second,
			GeoURL:            "https://ipapi.co",
			GeoTimeout:        4 * time.Second,
			ISPURL:            "https://ipinfo.io",
			ISPTimeout:        3 * time.Second,
			GeoCacheSize:      0,
			RateLimit:         4,
			RateBurst:         4,
			BreakerFailures:   5,
			BreakerTimeout:    30 * time.Second,
		},
		Alerts: AlertsConfig{
			CacheSize: 200,
			ListLimit: 200,
		},
		Store: StoreConfig{
			Backend: "badger",
			Path:    "/data/alerts",
		},
		Capture: CaptureConfig{
			Source:     "none",
			BatchSize:  64,
			BufferSize: 500,
		},
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			PacketSubject: "packets.>",
			AlertSubject:  "alerts.new",
		},
		Notify: NotifyConfig{
			WebSocket:        true,
			WebhookRateLimit: time.Second,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              5000,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Pipeline: PipelineConfig{
			QueueSize: 1024,
			Workers:   4,
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, in that order of increasing priority, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Unmapped variables are ignored so unrelated environment does not leak in.
var envMappings = map[string]string{
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"detection_large_packet_factor": "detection.large_packet_factor",
	"detection_port_scan_threshold": "detection.port_scan_threshold",
	"detection_burst_threshold":     "detection.burst_threshold",
	"detection_burst_window":        "detection.burst_window",
	"detection_entropy_threshold":   "detection.entropy_threshold",
	"detection_max_sources":         "detection.max_sources",
	"detection_window_shards":       "detection.window_shards",

	"virustotal_api_key":  "enrichment.virustotal_api_key",
	"vt_api_key":          "enrichment.virustotal_api_key",
	"virustotal_url":      "enrichment.virustotal_url",
	"virustotal_timeout":  "enrichment.virustotal_timeout",
	"abuseipdb_api_key":   "enrichment.abuseipdb_api_key",
	"abuseipdb_url":       "enrichment.abuseipdb_url",
	"abuseipdb_timeout":   "enrichment.abuseipdb_timeout",
	"geo_url":             "enrichment.geo_url",
	"geo_timeout":         "enrichment.geo_timeout",
	"isp_url":             "enrichment.isp_url",
	"isp_timeout":         "enrichment.isp_timeout",
	"geo_cache_size":      "enrichment.geo_cache_size",
	"enrichment_rate":     "enrichment.rate_limit",
	"enrichment_burst":    "enrichment.rate_burst",
	"breaker_failures":    "enrichment.breaker_failures",
	"breaker_timeout":     "enrichment.breaker_timeout",
	"alert_cache_size":    "alerts.cache_size",
	"alert_list_limit":    "alerts.list_limit",
	"store_backend":       "store.backend",
	"store_path":          "store.path",
	"store_in_memory":     "store.in_memory",
	"capture_source":      "capture.source",
	"capture_pcap_path":   "capture.pcap_path",
	"capture_batch_size":  "capture.batch_size",
	"capture_buffer_size": "capture.buffer_size",

	"nats_url":            "nats.url",
	"nats_packet_subject": "nats.packet_subject",
	"nats_alert_subject":  "nats.alert_subject",

	"notify_websocket":          "notify.websocket",
	"notify_nats":               "notify.nats",
	"notify_webhook_url":        "notify.webhook_url",
	"notify_webhook_rate_limit": "notify.webhook_rate_limit",

	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_read_timeout":   "server.read_timeout",
	"http_write_timeout":  "server.write_timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",

	"pipeline_queue_size": "pipeline.queue_size",
	"pipeline_workers":    "pipeline.workers",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - LOG_LEVEL -> logging.level
//   - VT_API_KEY -> enrichment.virustotal_api_key
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
