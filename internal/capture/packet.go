// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package capture

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/tomtom215/cyberanalyzer/internal/detection"
)

// MaxPayloadSample is the number of payload bytes kept per packet.
const MaxPayloadSample = 50

// FromPacket extracts a PacketRecord from a decoded packet. Packets without
// an IP layer are skipped.
func FromPacket(p gopacket.Packet) (detection.PacketRecord, bool) {
	rec := detection.PacketRecord{Timestamp: time.Now().UTC()}

	length := len(p.Data())
	if md := p.Metadata(); md != nil {
		if !md.Timestamp.IsZero() {
			rec.Timestamp = md.Timestamp.UTC()
		}
		if md.Length > 0 {
			length = md.Length
		}
	}
	rec = rec.WithLength(length)

	var proto layers.IPProtocol
	switch ip := p.NetworkLayer().(type) {
	case *layers.IPv4:
		rec.Src, rec.Dst = ip.SrcIP.String(), ip.DstIP.String()
		proto = ip.Protocol
	case *layers.IPv6:
		rec.Src, rec.Dst = ip.SrcIP.String(), ip.DstIP.String()
		proto = ip.NextHeader
	default:
		return detection.PacketRecord{}, false
	}
	rec.Proto = protocolName(proto)

	switch t := p.TransportLayer().(type) {
	case *layers.TCP:
		rec.SrcPort = detection.Port(uint16(t.SrcPort))
		rec.DstPort = detection.Port(uint16(t.DstPort))
	case *layers.UDP:
		rec.SrcPort = detection.Port(uint16(t.SrcPort))
		rec.DstPort = detection.Port(uint16(t.DstPort))
	}

	if l := p.Layer(layers.LayerTypeDNS); l != nil {
		if dns, ok := l.(*layers.DNS); ok && len(dns.Questions) > 0 {
			rec.DNSQuery = strings.TrimSuffix(string(dns.Questions[0].Name), ".")
		}
	}

	if l := p.Layer(gopacket.LayerTypePayload); l != nil {
		payload := l.LayerContents()
		if len(payload) > MaxPayloadSample {
			payload = payload[:MaxPayloadSample]
		}
		if len(payload) > 0 {
			rec.PayloadSample = hex.EncodeToString(payload)
		}
	}

	return rec, true
}

func protocolName(p layers.IPProtocol) string {
	switch p {
	case layers.IPProtocolTCP:
		return "TCP"
	case layers.IPProtocolUDP:
		return "UDP"
	default:
		return strconv.Itoa(int(p))
	}
}
