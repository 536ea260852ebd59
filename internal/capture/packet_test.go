// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package capture

import (
	"bytes"
	"encoding/hex"
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var (
	testSrcMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	testDstMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ls...); err != nil {
		t.Fatalf("SerializeLayers() error = %v", err)
	}
	return buf.Bytes()
}

func tcpFrame(t *testing.T, dport uint16, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{SrcMAC: testSrcMAC, DstMAC: testDstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IP{192, 168, 1, 10},
		DstIP:    net.IP{10, 0, 0, 1},
	}
	tcp := &layers.TCP{SrcPort: 40000, DstPort: layers.TCPPort(dport), PSH: true, ACK: true, Window: 1024}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatal(err)
	}
	return serialize(t, eth, ip, tcp, gopacket.Payload(payload))
}

func dnsFrame(t *testing.T, name string) []byte {
	t.Helper()
	eth := &layers.Ethernet{SrcMAC: testSrcMAC, DstMAC: testDstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP{192, 168, 1, 10},
		DstIP:    net.IP{8, 8, 8, 8},
	}
	udp := &layers.UDP{SrcPort: 53000, DstPort: 53}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatal(err)
	}
	dns := &layers.DNS{
		ID: 7,
		RD: true,
		Questions: []layers.DNSQuestion{
			{Name: []byte(name), Type: layers.DNSTypeA, Class: layers.DNSClassIN},
		},
	}
	return serialize(t, eth, ip, udp, dns)
}

func arpFrame(t *testing.T) []byte {
	t.Helper()
	eth := &layers.Ethernet{SrcMAC: testSrcMAC, DstMAC: layers.EthernetBroadcast, EthernetType: layers.EthernetTypeARP}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   testSrcMAC,
		SourceProtAddress: []byte{192, 168, 1, 10},
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    []byte{192, 168, 1, 1},
	}
	return serialize(t, eth, arp)
}

func decode(data []byte) gopacket.Packet {
	return gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
}

func TestFromPacket_TCP(t *testing.T) {
	payload := bytes.Repeat([]byte{0xab}, 80)
	frame := tcpFrame(t, 4444, payload)

	rec, ok := FromPacket(decode(frame))
	if !ok {
		t.Fatal("FromPacket() skipped an IPv4 packet")
	}
	if rec.Src != "192.168.1.10" || rec.Dst != "10.0.0.1" || rec.Proto != "TCP" {
		t.Errorf("addresses = %s -> %s %s", rec.Src, rec.Dst, rec.Proto)
	}
	if rec.SrcPort == nil || *rec.SrcPort != 40000 || rec.DstPort == nil || *rec.DstPort != 4444 {
		t.Errorf("ports = %v -> %v", rec.SrcPort, rec.DstPort)
	}
	if !rec.HasLength || rec.Length != len(frame) {
		t.Errorf("Length = %d (has %v), want %d", rec.Length, rec.HasLength, len(frame))
	}
	if want := hex.EncodeToString(payload[:MaxPayloadSample]); rec.PayloadSample != want {
		t.Errorf("PayloadSample = %q, want first %d bytes", rec.PayloadSample, MaxPayloadSample)
	}
	if rec.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
}

func TestFromPacket_DNS(t *testing.T) {
	rec, ok := FromPacket(decode(dnsFrame(t, "example.com")))
	if !ok {
		t.Fatal("FromPacket() skipped a UDP packet")
	}
	if rec.Proto != "UDP" || rec.DstPort == nil || *rec.DstPort != 53 {
		t.Errorf("proto/port = %s/%v", rec.Proto, rec.DstPort)
	}
	if rec.DNSQuery != "example.com" {
		t.Errorf("DNSQuery = %q, want example.com", rec.DNSQuery)
	}
	if rec.PayloadSample != "" {
		t.Errorf("DNS packets carry no raw payload sample, got %q", rec.PayloadSample)
	}
}

func TestFromPacket_SkipsNonIP(t *testing.T) {
	if _, ok := FromPacket(decode(arpFrame(t))); ok {
		t.Error("ARP packet should be skipped")
	}
}

func TestProtocolName(t *testing.T) {
	tests := []struct {
		proto layers.IPProtocol
		want  string
	}{
		{layers.IPProtocolTCP, "TCP"},
		{layers.IPProtocolUDP, "UDP"},
		{layers.IPProtocolICMPv4, "1"},
		{layers.IPProtocolGRE, "47"},
	}
	for _, tt := range tests {
		if got := protocolName(tt.proto); got != tt.want {
			t.Errorf("protocolName(%d) = %q, want %q", tt.proto, got, tt.want)
		}
	}
}
