// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package detection

import (
	"sync/atomic"
	"time"

	"github.com/tomtom215/cyberanalyzer/internal/logging"
	"github.com/tomtom215/cyberanalyzer/internal/metrics"
)

// Config holds detector thresholds.
type Config struct {
	// LargePacketFactor flags packets longer than this multiple of the batch mean.
	LargePacketFactor float64 `json:"large_packet_factor"`

	// PortScanThreshold flags sources with more distinct destination ports.
	PortScanThreshold int `json:"port_scan_threshold"`

	// BurstThreshold flags sources with more packets inside the window.
	BurstThreshold int `json:"burst_threshold"`

	// EntropyThreshold flags payload samples above this many bits per byte.
	EntropyThreshold float64 `json:"entropy_threshold"`

	// PortSampleSize caps the ports listed in a port scan event.
	PortSampleSize int `json:"port_sample_size"`
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		LargePacketFactor: 3,
		PortScanThreshold: 50,
		BurstThreshold:    100,
		EntropyThreshold:  7.5,
		PortSampleSize:    20,
	}
}

// WindowTracker is the per-source state the detector reads and updates.
// *cache.SourceWindows implements it.
type WindowTracker interface {
	RecordPort(src string, port uint16) int
	PortSample(src string, limit int) []uint16
	RecordEvent(src string, now time.Time) int
	Sources() int
	Reset()
}

// Stats is a snapshot of detector counters.
type Stats struct {
	BatchesProcessed int64            `json:"batches_processed"`
	PacketsProcessed int64            `json:"packets_processed"`
	DecodeErrors     int64            `json:"decode_errors"`
	EventsByKind     map[string]int64 `json:"events_by_kind"`
	SourcesTracked   int              `json:"sources_tracked"`
}

// Detector runs the four heuristics over packet batches.
type Detector struct {
	cfg     Config
	windows WindowTracker
	now     func() time.Time

	batches      atomic.Int64
	packets      atomic.Int64
	decodeErrors atomic.Int64
	largePackets atomic.Int64
	portScans    atomic.Int64
	bursts       atomic.Int64
	highEntropy  atomic.Int64
}

// Option configures a Detector.
type Option func(*Detector)

// WithClock overrides the arrival clock used for burst windows.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDetector creates a detector that keeps its per-source state in windows.
// Zero-valued thresholds fall back to DefaultConfig.
func NewDetector(cfg Config, windows WindowTracker, opts ...Option) *Detector {
	def := DefaultConfig()
	if cfg.LargePacketFactor <= 0 {
		cfg.LargePacketFactor = def.LargePacketFactor
	}
	if cfg.PortScanThreshold <= 0 {
		cfg.PortScanThreshold = def.PortScanThreshold
	}
	if cfg.BurstThreshold <= 0 {
		cfg.BurstThreshold = def.BurstThreshold
	}
	if cfg.EntropyThreshold <= 0 {
		cfg.EntropyThreshold = def.EntropyThreshold
	}
	if cfg.PortSampleSize <= 0 {
		cfg.PortSampleSize = def.PortSampleSize
	}

	d := &Detector{
		cfg:     cfg,
		windows: windows,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect evaluates a batch and returns all events: every large packet
// event first, then port scans, then bursts, then high entropy payloads.
// The arrival clock is read once per batch.
func (d *Detector) Detect(batch []PacketRecord) []AnomalyEvent {
	d.batches.Add(1)
	if len(batch) == 0 {
		return nil
	}
	d.packets.Add(int64(len(batch)))
	metrics.PacketsProcessed.Add(float64(len(batch)))

	now := d.now()

	var events []AnomalyEvent
	events = d.detectLargePackets(batch, now, events)
	events = d.detectPortScans(batch, now, events)
	events = d.detectBursts(batch, now, events)
	events = d.detectHighEntropy(batch, now, events)

	metrics.WindowSourcesTracked.Set(float64(d.windows.Sources()))
	return events
}

func (d *Detector) detectLargePackets(batch []PacketRecord, now time.Time, events []AnomalyEvent) []AnomalyEvent {
	var (
		total int64
		n     int
	)
	for i := range batch {
		if batch[i].HasLength {
			total += int64(batch[i].Length)
			n++
		}
	}
	if n == 0 {
		return events
	}

	mean := float64(total) / float64(n)
	limit := d.cfg.LargePacketFactor * mean
	for i := range batch {
		p := &batch[i]
		if !p.HasLength || float64(p.Length) <= limit {
			continue
		}
		events = d.emit(events, AnomalyEvent{
			Kind:       KindLargePacket,
			Src:        p.Src,
			Detail:     LargePacketDetail{Length: p.Length, Mean: mean},
			Packet:     *p,
			DetectedAt: now,
		})
	}
	return events
}

func (d *Detector) detectPortScans(batch []PacketRecord, now time.Time, events []AnomalyEvent) []AnomalyEvent {
	for i := range batch {
		p := &batch[i]
		// Port 0 carries no destination information and is treated as absent.
		if p.Src == "" || p.DstPort == nil || *p.DstPort == 0 {
			continue
		}
		distinct := d.windows.RecordPort(p.Src, *p.DstPort)
		if distinct <= d.cfg.PortScanThreshold {
			continue
		}
		events = d.emit(events, AnomalyEvent{
			Kind: KindPortScan,
			Src:  p.Src,
			Detail: PortScanDetail{
				Ports:    d.windows.PortSample(p.Src, d.cfg.PortSampleSize),
				Distinct: distinct,
			},
			Packet:     *p,
			DetectedAt: now,
		})
	}
	return events
}

func (d *Detector) detectBursts(batch []PacketRecord, now time.Time, events []AnomalyEvent) []AnomalyEvent {
	for i := range batch {
		p := &batch[i]
		if p.Src == "" {
			continue
		}
		rate := d.windows.RecordEvent(p.Src, now)
		if rate <= d.cfg.BurstThreshold {
			continue
		}
		events = d.emit(events, AnomalyEvent{
			Kind:       KindTrafficBurst,
			Src:        p.Src,
			Detail:     TrafficBurstDetail{Rate: rate},
			Packet:     *p,
			DetectedAt: now,
		})
	}
	return events
}

func (d *Detector) detectHighEntropy(batch []PacketRecord, now time.Time, events []AnomalyEvent) []AnomalyEvent {
	for i := range batch {
		p := &batch[i]
		if p.PayloadSample == "" {
			continue
		}
		entropy, err := PayloadEntropy(p.PayloadSample)
		if err != nil {
			d.decodeErrors.Add(1)
			metrics.EntropyDecodeErrors.Inc()
			logging.Debug().Err(err).Str("src", p.Src).Msg("skipping undecodable payload sample")
			continue
		}
		if entropy <= d.cfg.EntropyThreshold {
			continue
		}
		events = d.emit(events, AnomalyEvent{
			Kind:       KindHighEntropyPayload,
			Src:        p.Src,
			Detail:     EntropyDetail{Entropy: entropy},
			Packet:     *p,
			DetectedAt: now,
		})
	}
	return events
}

func (d *Detector) emit(events []AnomalyEvent, ev AnomalyEvent) []AnomalyEvent {
	switch ev.Kind {
	case KindLargePacket:
		d.largePackets.Add(1)
	case KindPortScan:
		d.portScans.Add(1)
	case KindTrafficBurst:
		d.bursts.Add(1)
	case KindHighEntropyPayload:
		d.highEntropy.Add(1)
	}
	metrics.AnomaliesDetected.WithLabelValues(string(ev.Kind)).Inc()
	return append(events, ev)
}

// ResetWindows discards every source's port set and burst window. Counters
// are kept.
func (d *Detector) ResetWindows() {
	d.windows.Reset()
	metrics.WindowSourcesTracked.Set(float64(d.windows.Sources()))
}

// Stats returns a snapshot of the detector counters.
func (d *Detector) Stats() Stats {
	return Stats{
		BatchesProcessed: d.batches.Load(),
		PacketsProcessed: d.packets.Load(),
		DecodeErrors:     d.decodeErrors.Load(),
		EventsByKind: map[string]int64{
			string(KindLargePacket):        d.largePackets.Load(),
			string(KindPortScan):           d.portScans.Load(),
			string(KindTrafficBurst):       d.bursts.Load(),
			string(KindHighEntropyPayload): d.highEntropy.Load(),
		},
		SourcesTracked: d.windows.Sources(),
	}
}
