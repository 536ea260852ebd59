// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package detection

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

var (
	// ErrInvalidEncoding is returned when a payload sample is not valid hex.
	ErrInvalidEncoding = errors.New("invalid payload encoding")

	// ErrInvalidInput is returned for packet records that violate field ranges.
	ErrInvalidInput = errors.New("invalid packet record")
)

// PacketRecord is one observed packet summary. It is immutable once built.
type PacketRecord struct {
	Src   string `json:"src,omitempty"`
	Dst   string `json:"dst,omitempty"`
	Proto string `json:"proto,omitempty"` // "TCP", "UDP" or the IP protocol number

	// Ports are nil when the transport header carried none.
	SrcPort *uint16 `json:"sport,omitempty"`
	DstPort *uint16 `json:"dport,omitempty"`

	// Length is meaningful only when HasLength is true.
	Length    int  `json:"-"`
	HasLength bool `json:"-"`

	DNSQuery string `json:"dns_query,omitempty"`

	// PayloadSample is a hex-encoded prefix of the payload, empty when absent.
	PayloadSample string `json:"payload_sample,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// packetJSON carries Length as a pointer so absence survives the wire.
type packetJSON struct {
	Src           string    `json:"src,omitempty"`
	Dst           string    `json:"dst,omitempty"`
	Proto         string    `json:"proto,omitempty"`
	SrcPort       *uint16   `json:"sport,omitempty"`
	DstPort       *uint16   `json:"dport,omitempty"`
	Length        *int      `json:"length,omitempty"`
	DNSQuery      string    `json:"dns_query,omitempty"`
	PayloadSample string    `json:"payload_sample,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// MarshalJSON implements json.Marshaler.
func (p PacketRecord) MarshalJSON() ([]byte, error) {
	out := packetJSON{
		Src:           p.Src,
		Dst:           p.Dst,
		Proto:         p.Proto,
		SrcPort:       p.SrcPort,
		DstPort:       p.DstPort,
		DNSQuery:      p.DNSQuery,
		PayloadSample: p.PayloadSample,
		Timestamp:     p.Timestamp,
	}
	if p.HasLength {
		length := p.Length
		out.Length = &length
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *PacketRecord) UnmarshalJSON(data []byte) error {
	var in packetJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = PacketRecord{
		Src:           in.Src,
		Dst:           in.Dst,
		Proto:         in.Proto,
		SrcPort:       in.SrcPort,
		DstPort:       in.DstPort,
		DNSQuery:      in.DNSQuery,
		PayloadSample: in.PayloadSample,
		Timestamp:     in.Timestamp,
	}
	if in.Length != nil {
		p.Length = *in.Length
		p.HasLength = true
	}
	return nil
}

// Validate reports field range violations.
func (p PacketRecord) Validate() error {
	if p.HasLength && p.Length < 0 {
		return fmt.Errorf("%w: negative length %d", ErrInvalidInput, p.Length)
	}
	return nil
}

// Port returns a pointer to port for building PacketRecord literals.
func Port(port uint16) *uint16 {
	return &port
}

// WithLength returns a copy of p with Length set.
func (p PacketRecord) WithLength(length int) PacketRecord {
	p.Length = length
	p.HasLength = true
	return p
}

// AnomalyKind identifies the heuristic that fired.
type AnomalyKind string

const (
	KindLargePacket        AnomalyKind = "large_packet"
	KindPortScan           AnomalyKind = "port_scan"
	KindTrafficBurst       AnomalyKind = "traffic_burst"
	KindHighEntropyPayload AnomalyKind = "high_entropy_payload"
)

// Label returns the human-readable name of the kind.
func (k AnomalyKind) Label() string {
	switch k {
	case KindLargePacket:
		return "Large Packet"
	case KindPortScan:
		return "Port Scan Detected"
	case KindTrafficBurst:
		return "Traffic Burst"
	case KindHighEntropyPayload:
		return "High Entropy Payload"
	default:
		return string(k)
	}
}

// Detail is the kind-specific evidence attached to an AnomalyEvent.
type Detail interface {
	Kind() AnomalyKind
	Fields() map[string]any
}

// LargePacketDetail records the packet length against the batch mean.
type LargePacketDetail struct {
	Length int     `json:"length"`
	Mean   float64 `json:"mean"`
}

func (LargePacketDetail) Kind() AnomalyKind { return KindLargePacket }

func (d LargePacketDetail) Fields() map[string]any {
	return map[string]any{"length": d.Length, "mean": d.Mean}
}

// PortScanDetail lists up to 20 of the ports contacted by the source.
type PortScanDetail struct {
	Ports    []uint16 `json:"ports"`
	Distinct int      `json:"distinct"`
}

func (PortScanDetail) Kind() AnomalyKind { return KindPortScan }

func (d PortScanDetail) Fields() map[string]any {
	return map[string]any{"ports": d.Ports, "distinct": d.Distinct}
}

// TrafficBurstDetail records packets seen from the source in the window.
type TrafficBurstDetail struct {
	Rate int `json:"rate"`
}

func (TrafficBurstDetail) Kind() AnomalyKind { return KindTrafficBurst }

func (d TrafficBurstDetail) Fields() map[string]any {
	return map[string]any{"rate": d.Rate}
}

// EntropyDetail records the payload entropy in bits per byte.
type EntropyDetail struct {
	Entropy float64 `json:"entropy"`
}

func (EntropyDetail) Kind() AnomalyKind { return KindHighEntropyPayload }

func (d EntropyDetail) Fields() map[string]any {
	return map[string]any{"entropy": d.Entropy}
}

// AnomalyEvent is a single heuristic hit for one packet.
type AnomalyEvent struct {
	Kind       AnomalyKind
	Src        string
	Detail     Detail
	Packet     PacketRecord
	DetectedAt time.Time
}
