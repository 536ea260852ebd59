// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package detection

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func uniformBytes() []byte {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

func TestShannonEntropy(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want float64
	}{
		{"empty", nil, 0},
		{"single byte", []byte{0x41}, 0},
		{"repeated byte", bytes.Repeat([]byte{0xff}, 1000), 0},
		{"two symbols equal", []byte{0, 1, 0, 1}, 1},
		{"four symbols equal", []byte{0, 1, 2, 3}, 2},
		{"uniform 256", uniformBytes(), 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShannonEntropy(tt.data)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ShannonEntropy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShannonEntropy_Bounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		data := make([]byte, 1+rng.IntN(2048))
		for j := range data {
			data[j] = byte(rng.IntN(256))
		}
		e := ShannonEntropy(data)
		if e < 0 || e > 8 {
			t.Fatalf("entropy %v out of [0, 8] for %d bytes", e, len(data))
		}
	}
}

func TestShannonEntropy_LargeUniformApproachesEight(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	data := make([]byte, 1<<16)
	for i := range data {
		data[i] = byte(rng.IntN(256))
	}
	if e := ShannonEntropy(data); e < 7.99 {
		t.Errorf("entropy of 64KiB uniform sample = %v, want close to 8", e)
	}
}

func TestPayloadEntropy(t *testing.T) {
	e, err := PayloadEntropy(hex.EncodeToString(uniformBytes()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(e-8) > 1e-9 {
		t.Errorf("PayloadEntropy() = %v, want 8", e)
	}

	if e, err := PayloadEntropy(""); err != nil || e != 0 {
		t.Errorf("empty sample: got %v, %v; want 0, nil", e, err)
	}
}

func TestPayloadEntropy_InvalidEncoding(t *testing.T) {
	for _, sample := range []string{"zz", "abc", "0x41", "not hex"} {
		t.Run(sample, func(t *testing.T) {
			_, err := PayloadEntropy(sample)
			if !errors.Is(err, ErrInvalidEncoding) {
				t.Errorf("PayloadEntropy(%q) error = %v, want ErrInvalidEncoding", sample, err)
			}
		})
	}
}
