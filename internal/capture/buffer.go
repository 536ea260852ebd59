// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package capture

import (
	"sort"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cyberanalyzer/internal/cache"
	"github.com/tomtom215/cyberanalyzer/internal/detection"
)

// Buffer defaults.
const (
	DefaultBufferSize = 500
	DefaultLiveCount  = 20
	DefaultTopN       = 10
)

// Buffer keeps the most recent packets for the live traffic views.
type Buffer struct {
	ring *cache.Ring[detection.PacketRecord]
}

// NewBuffer creates a buffer holding size packets.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{ring: cache.NewRing[detection.PacketRecord](size)}
}

// Add appends a batch, evicting the oldest packets.
func (b *Buffer) Add(batch []detection.PacketRecord) {
	for i := range batch {
		b.ring.Push(batch[i])
	}
}

// Len returns the number of buffered packets.
func (b *Buffer) Len() int {
	return b.ring.Len()
}

// Live returns up to n of the newest packets, oldest first.
func (b *Buffer) Live(n int) []detection.PacketRecord {
	if n <= 0 {
		n = DefaultLiveCount
	}
	packets := b.ring.Snapshot()
	if len(packets) > n {
		packets = packets[len(packets)-n:]
	}
	return packets
}

// Count is a key with its number of occurrences. It serializes as a
// [key, count] pair.
type Count struct {
	Key   string
	Count int
}

// MarshalJSON implements json.Marshaler.
func (c Count) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Key, c.Count})
}

// Summary ranks the buffered traffic.
type Summary struct {
	TopTalkers   []Count `json:"top_talkers"`
	TopProtocols []Count `json:"top_protocols"`
}

// Summary returns the top n sources and protocols by packet count. Ties
// keep the order in which keys were first seen.
func (b *Buffer) Summary(n int) Summary {
	if n <= 0 {
		n = DefaultTopN
	}
	packets := b.ring.Snapshot()

	talkers := newCounter()
	protocols := newCounter()
	for i := range packets {
		if packets[i].Src != "" {
			talkers.add(packets[i].Src)
		}
		if packets[i].Proto != "" {
			protocols.add(packets[i].Proto)
		}
	}

	return Summary{
		TopTalkers:   talkers.top(n),
		TopProtocols: protocols.top(n),
	}
}

type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *counter) top(n int) []Count {
	out := make([]Count, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, Count{Key: k, Count: c.counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
