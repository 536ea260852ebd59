// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package services

import (
	"context"
)

// ContextRunner is satisfied by *pipeline.Pipeline and *notify.Hub.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// PipelineService runs the detection pipeline workers.
type PipelineService struct {
	pipeline ContextRunner
	name     string
}

// NewPipelineService wraps p.
func NewPipelineService(p ContextRunner) *PipelineService {
	return &PipelineService{
		pipeline: p,
		name:     "detection-pipeline",
	}
}

// Serve blocks until ctx is canceled and queued events are drained.
func (s *PipelineService) Serve(ctx context.Context) error {
	return s.pipeline.RunWithContext(ctx)
}

func (s *PipelineService) String() string {
	return s.name
}

// WebSocketHubService runs the dashboard broadcast hub.
type WebSocketHubService struct {
	hub  ContextRunner
	name string
}

// NewWebSocketHubService wraps hub.
func NewWebSocketHubService(hub ContextRunner) *WebSocketHubService {
	return &WebSocketHubService{
		hub:  hub,
		name: "websocket-hub",
	}
}

// Serve delegates to the hub, which closes every client before returning.
func (w *WebSocketHubService) Serve(ctx context.Context) error {
	return w.hub.RunWithContext(ctx)
}

func (w *WebSocketHubService) String() string {
	return w.name
}
