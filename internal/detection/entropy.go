// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package detection

import (
	"encoding/hex"
	"fmt"
	"math"
)

// ShannonEntropy returns the entropy of data in bits per byte, in [0, 8].
// Empty input yields 0.
func ShannonEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var counts [256]int
	for _, b := range data {
		counts[b]++
	}

	n := float64(len(data))
	entropy := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}

	// Guard against -0 and rounding above the 8-bit ceiling.
	return math.Min(math.Max(entropy, 0), 8)
}

// DecodePayloadSample decodes a hex payload sample.
func DecodePayloadSample(sample string) ([]byte, error) {
	data, err := hex.DecodeString(sample)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}
	return data, nil
}

// PayloadEntropy decodes a hex payload sample and returns its entropy.
func PayloadEntropy(sample string) (float64, error) {
	data, err := DecodePayloadSample(sample)
	if err != nil {
		return 0, err
	}
	return ShannonEntropy(data), nil
}
