// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/tomtom215/cyberanalyzer/internal/detection"
)

var captureStart = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func writePcap(t *testing.T, frames ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.pcap")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		t.Fatal(err)
	}
	for i, frame := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     captureStart.Add(time.Duration(i) * time.Millisecond),
			CaptureLength: len(frame),
			Length:        len(frame),
		}
		if err := w.WritePacket(ci, frame); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func collect(t *testing.T, src Source) [][]detection.PacketRecord {
	t.Helper()
	var batches [][]detection.PacketRecord
	if err := src.Run(context.Background(), func(b []detection.PacketRecord) {
		batches = append(batches, b)
	}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return batches
}

func TestPcapFileSource_Batches(t *testing.T) {
	frames := [][]byte{arpFrame(t)}
	for i := 0; i < 5; i++ {
		frames = append(frames, tcpFrame(t, uint16(1000+i), []byte("hello")))
	}
	path := writePcap(t, frames...)

	batches := collect(t, NewPcapFileSource(path, 2))
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	sizes := []int{len(batches[0]), len(batches[1]), len(batches[2])}
	if sizes[0] != 2 || sizes[1] != 2 || sizes[2] != 1 {
		t.Errorf("batch sizes = %v, want [2 2 1]", sizes)
	}

	first := batches[0][0]
	// The ARP frame at index 0 is skipped, so the first record is frame 1.
	if want := captureStart.Add(time.Millisecond); !first.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want capture time %v", first.Timestamp, want)
	}
	if *first.DstPort != 1000 {
		t.Errorf("DstPort = %d, want 1000", *first.DstPort)
	}
}

func TestPcapFileSource_TruncatedFile(t *testing.T) {
	path := writePcap(t, tcpFrame(t, 80, nil), tcpFrame(t, 81, nil))
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Truncate(path, info.Size()-10); err != nil {
		t.Fatal(err)
	}

	batches := collect(t, NewPcapFileSource(path, 10))
	if len(batches) != 1 || len(batches[0]) != 1 {
		t.Errorf("want the one complete packet, got %v", batches)
	}
}

func TestPcapFileSource_Errors(t *testing.T) {
	if err := NewPcapFileSource(filepath.Join(t.TempDir(), "missing.pcap"), 0).Run(context.Background(), func([]detection.PacketRecord) {}); err == nil {
		t.Error("expected error for missing file")
	}

	garbage := filepath.Join(t.TempDir(), "garbage.pcap")
	if err := os.WriteFile(garbage, []byte("definitely not a capture file"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := NewPcapFileSource(garbage, 0).Run(context.Background(), func([]detection.PacketRecord) {}); err == nil {
		t.Error("expected error for invalid header")
	}
}

func TestPcapFileSource_Cancelled(t *testing.T) {
	path := writePcap(t, tcpFrame(t, 80, nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewPcapFileSource(path, 1).Run(ctx, func([]detection.PacketRecord) {})
	if err == nil {
		t.Error("expected context error")
	}
}
