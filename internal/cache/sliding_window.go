// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultWindow is the burst window length.
	DefaultWindow = 10 * time.Second

	// DefaultShards is the number of independently locked shards.
	DefaultShards = 32
)

// sourceState is the window state of one source address.
type sourceState struct {
	// ports is never pruned so slow scans accumulate indefinitely.
	ports map[uint16]struct{}

	// events holds arrival times of packets within the window.
	events []time.Time

	// touched orders sources for least-recently-updated eviction.
	touched uint64
}

type windowShard struct {
	mu      sync.Mutex
	sources map[string]*sourceState
}

// SourceWindows tracks, per source address, the set of distinct destination
// ports ever contacted and the packet arrival times inside a sliding window.
//
// State is sharded by FNV-1a hash of the source so unrelated sources never
// contend for the same lock. Eviction of expired timestamps happens only when
// RecordEvent is called for that source.
//
// Example usage:
//
//	w := cache.NewSourceWindows(10*time.Second)
//	distinct := w.RecordPort("10.0.0.5", 443)
//	recent := w.RecordEvent("10.0.0.5", time.Now())
type SourceWindows struct {
	shards     []*windowShard
	window     time.Duration
	maxSources int64 // 0 = unlimited
	tracked    atomic.Int64
	clock      atomic.Uint64
}

// WindowOption configures SourceWindows.
type WindowOption func(*SourceWindows)

// WithShards sets the number of lock shards.
func WithShards(n int) WindowOption {
	return func(w *SourceWindows) {
		if n > 0 {
			w.shards = newShards(n)
		}
	}
}

// WithMaxSources bounds the number of tracked sources across all shards.
// When a new source pushes the total over n, the least recently updated
// source in any shard is dropped whole, port set included. Zero keeps every
// source for the life of the process.
func WithMaxSources(n int) WindowOption {
	return func(w *SourceWindows) {
		if n > 0 {
			w.maxSources = int64(n)
		}
	}
}

// NewSourceWindows creates a tracker with the given burst window.
func NewSourceWindows(window time.Duration, opts ...WindowOption) *SourceWindows {
	if window <= 0 {
		window = DefaultWindow
	}
	w := &SourceWindows{
		shards: newShards(DefaultShards),
		window: window,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func newShards(n int) []*windowShard {
	shards := make([]*windowShard, n)
	for i := range shards {
		shards[i] = &windowShard{sources: make(map[string]*sourceState)}
	}
	return shards
}

func (w *SourceWindows) shardFor(src string) *windowShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(src))
	return w.shards[h.Sum32()%uint32(len(w.shards))]
}

// state returns the state for src, creating it if needed, and reports
// whether it was created. Must be called with the shard lock held.
func (w *SourceWindows) state(sh *windowShard, src string) (*sourceState, bool) {
	st, ok := sh.sources[src]
	if !ok {
		st = &sourceState{ports: make(map[uint16]struct{})}
		sh.sources[src] = st
		w.tracked.Add(1)
	}
	st.touched = w.clock.Add(1)
	return st, !ok
}

// enforceBound evicts least recently updated sources until the total is
// within maxSources. Shard locks are taken one at a time, never nested.
func (w *SourceWindows) enforceBound() {
	if w.maxSources == 0 {
		return
	}
	for w.tracked.Load() > w.maxSources {
		if !w.evictLeastRecent() {
			return
		}
	}
}

// evictLeastRecent drops the source updated longest ago across every shard.
// It returns false when nothing was evicted.
func (w *SourceWindows) evictLeastRecent() bool {
	var (
		victim  *windowShard
		key     string
		touched uint64
	)
	for _, sh := range w.shards {
		sh.mu.Lock()
		for k, st := range sh.sources {
			if victim == nil || st.touched < touched {
				victim, key, touched = sh, k, st.touched
			}
		}
		sh.mu.Unlock()
	}
	if victim == nil {
		return false
	}

	victim.mu.Lock()
	defer victim.mu.Unlock()
	// A concurrent update or eviction wins; the caller rescans.
	if st, ok := victim.sources[key]; ok && st.touched == touched {
		delete(victim.sources, key)
		w.tracked.Add(-1)
	}
	return true
}

// RecordPort adds port to the set of ports contacted by src and returns the
// number of distinct ports seen so far.
func (w *SourceWindows) RecordPort(src string, port uint16) int {
	sh := w.shardFor(src)
	sh.mu.Lock()
	st, created := w.state(sh, src)
	st.ports[port] = struct{}{}
	n := len(st.ports)
	sh.mu.Unlock()

	if created {
		w.enforceBound()
	}
	return n
}

// PortSample returns up to limit ports from the set for src in no
// particular order.
func (w *SourceWindows) PortSample(src string, limit int) []uint16 {
	sh := w.shardFor(src)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.sources[src]
	if !ok || limit <= 0 {
		return nil
	}
	n := min(limit, len(st.ports))
	ports := make([]uint16, 0, n)
	for p := range st.ports {
		if len(ports) == n {
			break
		}
		ports = append(ports, p)
	}
	return ports
}

// RecordEvent appends now to the event list for src, removes every timestamp
// t with now-t >= window and returns the remaining count.
func (w *SourceWindows) RecordEvent(src string, now time.Time) int {
	sh := w.shardFor(src)
	sh.mu.Lock()
	st, created := w.state(sh, src)
	st.events = append(st.events, now)

	kept := st.events[:0]
	for _, t := range st.events {
		if now.Sub(t) < w.window {
			kept = append(kept, t)
		}
	}
	// Release the backing array once it is mostly empty.
	if cap(kept) > 64 && len(kept) < cap(kept)/4 {
		kept = append(make([]time.Time, 0, len(kept)*2), kept...)
	}
	st.events = kept
	n := len(kept)
	sh.mu.Unlock()

	if created {
		w.enforceBound()
	}
	return n
}

// Sources returns the number of tracked source addresses.
func (w *SourceWindows) Sources() int {
	return int(w.tracked.Load())
}

// Window returns the configured burst window.
func (w *SourceWindows) Window() time.Duration {
	return w.window
}

// Reset discards all state.
func (w *SourceWindows) Reset() {
	for _, sh := range w.shards {
		sh.mu.Lock()
		w.tracked.Add(-int64(len(sh.sources)))
		sh.sources = make(map[string]*sourceState)
		sh.mu.Unlock()
	}
}
