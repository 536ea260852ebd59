// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package detection

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestPacketRecord_LengthPresence(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantHas    bool
		wantLength int
	}{
		{"length present", `{"src":"10.0.0.1","length":0}`, true, 0},
		{"length positive", `{"src":"10.0.0.1","length":1500}`, true, 1500},
		{"length absent", `{"src":"10.0.0.1"}`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p PacketRecord
			if err := json.Unmarshal([]byte(tt.input), &p); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if p.HasLength != tt.wantHas || p.Length != tt.wantLength {
				t.Errorf("got HasLength=%v Length=%d, want %v %d", p.HasLength, p.Length, tt.wantHas, tt.wantLength)
			}
		})
	}
}

func TestPacketRecord_MarshalOmitsAbsentLength(t *testing.T) {
	data, err := json.Marshal(PacketRecord{Src: "a", DstPort: Port(443)})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "length") {
		t.Errorf("absent length should be omitted: %s", data)
	}
	if !strings.Contains(string(data), `"dport":443`) {
		t.Errorf("dport missing: %s", data)
	}

	data, err = json.Marshal(PacketRecord{Src: "a"}.WithLength(0))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"length":0`) {
		t.Errorf("zero length should be kept when present: %s", data)
	}
}

func TestPacketRecord_Validate(t *testing.T) {
	if err := (PacketRecord{}).WithLength(-1).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("negative length: error = %v, want ErrInvalidInput", err)
	}
	if err := (PacketRecord{}).WithLength(64).Validate(); err != nil {
		t.Errorf("valid record: unexpected error %v", err)
	}
	if err := (PacketRecord{}).Validate(); err != nil {
		t.Errorf("record without length: unexpected error %v", err)
	}
}

func TestAnomalyKind_Label(t *testing.T) {
	if KindPortScan.Label() != "Port Scan Detected" {
		t.Errorf("Label() = %q", KindPortScan.Label())
	}
	if AnomalyKind("other").Label() != "other" {
		t.Error("unknown kinds should fall back to their value")
	}
}
