// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
)

var errSimulated = errors.New("simulated failure")

// MockService counts its runs. The first failFirst runs return
// errSimulated; later runs block until ctx is canceled.
type MockService struct {
	name      string
	failFirst atomic.Int32
	starts    atomic.Int32
	stops     atomic.Int32
}

func NewMockService(name string) *MockService {
	return &MockService{name: name}
}

func (m *MockService) Serve(ctx context.Context) error {
	run := m.starts.Add(1)
	defer m.stops.Add(1)

	if run <= m.failFirst.Load() {
		return errSimulated
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *MockService) SetFailCount(n int) { m.failFirst.Store(int32(n)) }

func (m *MockService) StartCount() int32 { return m.starts.Load() }

func (m *MockService) StopCount() int32 { return m.stops.Load() }

func (m *MockService) String() string { return m.name }
