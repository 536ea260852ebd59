// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package capture

import (
	"fmt"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cyberanalyzer/internal/detection"
)

func packetsFrom(srcs ...string) []detection.PacketRecord {
	out := make([]detection.PacketRecord, len(srcs))
	for i, s := range srcs {
		proto := "TCP"
		if i%3 == 0 {
			proto = "UDP"
		}
		out[i] = detection.PacketRecord{Src: s, Proto: proto}
	}
	return out
}

func TestBuffer_Live(t *testing.T) {
	b := NewBuffer(5)
	for i := 0; i < 8; i++ {
		b.Add(packetsFrom(fmt.Sprintf("10.0.0.%d", i)))
	}

	got := b.Live(3)
	if len(got) != 3 {
		t.Fatalf("Live(3) = %d packets", len(got))
	}
	for i, want := range []string{"10.0.0.5", "10.0.0.6", "10.0.0.7"} {
		if got[i].Src != want {
			t.Errorf("Live(3)[%d] = %s, want %s", i, got[i].Src, want)
		}
	}

	if got := b.Live(0); len(got) != 5 {
		t.Errorf("Live(0) = %d packets, want the whole buffer of 5", len(got))
	}
}

func TestBuffer_Summary(t *testing.T) {
	b := NewBuffer(0)
	b.Add(packetsFrom("a", "b", "b", "c", "c", "c", ""))

	s := b.Summary(2)
	if len(s.TopTalkers) != 2 {
		t.Fatalf("TopTalkers = %v", s.TopTalkers)
	}
	if s.TopTalkers[0] != (Count{Key: "c", Count: 3}) || s.TopTalkers[1] != (Count{Key: "b", Count: 2}) {
		t.Errorf("TopTalkers = %v", s.TopTalkers)
	}
	if s.TopProtocols[0] != (Count{Key: "TCP", Count: 4}) || s.TopProtocols[1] != (Count{Key: "UDP", Count: 3}) {
		t.Errorf("TopProtocols = %v", s.TopProtocols)
	}
}

func TestBuffer_SummaryTiesKeepFirstSeen(t *testing.T) {
	b := NewBuffer(0)
	b.Add(packetsFrom("z", "y", "x"))
	s := b.Summary(0)
	for i, want := range []string{"z", "y", "x"} {
		if s.TopTalkers[i].Key != want {
			t.Errorf("TopTalkers[%d] = %s, want %s", i, s.TopTalkers[i].Key, want)
		}
	}
}

func TestSummary_JSONPairs(t *testing.T) {
	data, err := json.Marshal(Summary{
		TopTalkers:   []Count{{Key: "1.2.3.4", Count: 7}},
		TopProtocols: []Count{},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"top_talkers":[["1.2.3.4",7]],"top_protocols":[]}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}
