// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

// Package pipeline connects packet capture to alerting.
//
// Detection runs synchronously inside Submit; it is CPU-only and never
// waits on the network. Each resulting anomaly is queued for a pool of
// enrichment workers that call the alert handler. When the queue is full
// the event is dropped and counted, so slow threat-intel lookups never
// stall classification of later batches.
//
//	p := pipeline.New(detector, aggregator, pipeline.WithRecorder(buffer))
//	go p.RunWithContext(ctx)
//	source.Run(ctx, p.Submit)
package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cyberanalyzer/internal/alerts"
	"github.com/tomtom215/cyberanalyzer/internal/detection"
	"github.com/tomtom215/cyberanalyzer/internal/logging"
	"github.com/tomtom215/cyberanalyzer/internal/metrics"
)

const (
	DefaultQueueSize    = 1024
	DefaultWorkers      = 4
	DefaultDrainTimeout = 5 * time.Second
)

// Detector evaluates packet batches. *detection.Detector implements it.
type Detector interface {
	Detect(batch []detection.PacketRecord) []detection.AnomalyEvent
}

// Handler turns anomalies into alerts. *alerts.Aggregator implements it.
type Handler interface {
	Handle(ctx context.Context, ev detection.AnomalyEvent) (*alerts.Record, error)
}

// Recorder keeps recent packets for the traffic views. *capture.Buffer
// implements it.
type Recorder interface {
	Add(batch []detection.PacketRecord)
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Batches    int64 `json:"batches"`
	Events     int64 `json:"events"`
	Dropped    int64 `json:"dropped"`
	Alerts     int64 `json:"alerts"`
	Failures   int64 `json:"failures"`
	QueueDepth int   `json:"queue_depth"`
	Workers    int   `json:"workers"`
}

type job struct {
	ev      detection.AnomalyEvent
	batchID string
}

// Pipeline owns the bounded queue between detection and enrichment.
type Pipeline struct {
	detector     Detector
	handler      Handler
	recorder     Recorder
	queue        chan job
	workers      int
	drainTimeout time.Duration
	log          zerolog.Logger

	batches  atomic.Int64
	events   atomic.Int64
	dropped  atomic.Int64
	alerts   atomic.Int64
	failures atomic.Int64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithQueueSize sets the enrichment queue capacity.
func WithQueueSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.queue = make(chan job, n)
		}
	}
}

// WithWorkers sets the number of enrichment workers.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithRecorder appends every submitted batch to r.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithDrainTimeout bounds how long queued events are processed after
// shutdown begins.
func WithDrainTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.drainTimeout = d
		}
	}
}

// New creates a pipeline.
func New(detector Detector, handler Handler, opts ...Option) *Pipeline {
	p := &Pipeline{
		detector:     detector,
		handler:      handler,
		queue:        make(chan job, DefaultQueueSize),
		workers:      DefaultWorkers,
		log:          logging.WithComponent("pipeline"),
		drainTimeout: DefaultDrainTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit records and evaluates one batch and queues the resulting events.
// It never blocks on enrichment and matches capture.Sink.
func (p *Pipeline) Submit(batch []detection.PacketRecord) {
	p.batches.Add(1)
	if len(batch) == 0 {
		return
	}
	if p.recorder != nil {
		p.recorder.Add(batch)
	}

	events := p.detector.Detect(batch)
	if len(events) == 0 {
		return
	}
	p.events.Add(int64(len(events)))

	batchID := logging.GenerateBatchID()
	for _, ev := range events {
		select {
		case p.queue <- job{ev: ev, batchID: batchID}:
		default:
			p.dropped.Add(1)
			metrics.PipelineEventsDropped.Inc()
			p.log.Warn().
				Str("batch_id", batchID).
				Str("kind", string(ev.Kind)).
				Str("src", ev.Src).
				Msg("enrichment queue full, dropping anomaly event")
		}
	}
	metrics.PipelineQueueDepth.Set(float64(len(p.queue)))
}

// RunWithContext runs the enrichment workers until ctx is done, then
// drains what is left in the queue within the drain timeout.
func (p *Pipeline) RunWithContext(ctx context.Context) error {
	p.log.Info().Int("workers", p.workers).Int("queue_size", cap(p.queue)).Msg("pipeline started")

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.work(ctx)
		}()
	}
	wg.Wait()

	p.drain(ctx)
	return ctx.Err()
}

func (p *Pipeline) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case j := <-p.queue:
			p.handle(ctx, j)
		}
	}
}

func (p *Pipeline) drain(ctx context.Context) {
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.drainTimeout)
	defer cancel()

	handled := 0
	for {
		if drainCtx.Err() != nil {
			left := len(p.queue)
			if left > 0 {
				p.log.Warn().Int("remaining", left).Msg("pipeline drain timed out")
			}
			return
		}
		select {
		case j := <-p.queue:
			p.handle(drainCtx, j)
			handled++
		default:
			p.log.Info().Int("drained", handled).Msg("pipeline stopped")
			return
		}
	}
}

func (p *Pipeline) handle(ctx context.Context, j job) {
	metrics.PipelineQueueDepth.Set(float64(len(p.queue)))
	ctx = logging.ContextWithBatchID(ctx, j.batchID)

	rec, err := p.handler.Handle(ctx, j.ev)
	switch {
	case err == nil:
	case errors.Is(err, alerts.ErrDegradedWrite):
		// Alert exists in the recent cache; the handler already logged it.
	default:
		p.failures.Add(1)
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("kind", string(j.ev.Kind)).
			Str("src", j.ev.Src).
			Msg("anomaly event not turned into an alert")
		return
	}
	if rec != nil {
		p.alerts.Add(1)
	}
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Batches:    p.batches.Load(),
		Events:     p.events.Load(),
		Dropped:    p.dropped.Load(),
		Alerts:     p.alerts.Load(),
		Failures:   p.failures.Load(),
		QueueDepth: len(p.queue),
		Workers:    p.workers,
	}
}
