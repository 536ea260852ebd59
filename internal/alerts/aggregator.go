// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package alerts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/cyberanalyzer/internal/cache"
	"github.com/tomtom215/cyberanalyzer/internal/detection"
	"github.com/tomtom215/cyberanalyzer/internal/logging"
	"github.com/tomtom215/cyberanalyzer/internal/metrics"
	"github.com/tomtom215/cyberanalyzer/internal/threatintel"
)

// Defaults for the recent cache and List.
const (
	DefaultCacheSize = 200
	DefaultListLimit = 200
)

// Enricher scores a source address.
type Enricher interface {
	Enrich(ctx context.Context, ip string) (threatintel.Result, error)
}

// Notifier delivers a one-line alert announcement.
type Notifier interface {
	Send(ctx context.Context, message string) error
}

// Aggregator builds, stores, caches and announces alerts.
type Aggregator struct {
	store     Store
	enricher  Enricher
	notifier  Notifier
	recent    *cache.Ring[Record]
	listLimit int
	now       func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithNotifier sets the announcement channel.
func WithNotifier(n Notifier) Option {
	return func(a *Aggregator) {
		a.notifier = n
	}
}

// WithCacheSize sets the capacity of the recent cache.
func WithCacheSize(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.recent = cache.NewRing[Record](n)
		}
	}
}

// WithListLimit sets how many persisted records List reads by default.
func WithListLimit(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.listLimit = n
		}
	}
}

// WithClock overrides the creation time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// NewAggregator creates an Aggregator. A nil store keeps alerts in the
// recent cache only.
func NewAggregator(store Store, enricher Enricher, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:     store,
		enricher:  enricher,
		recent:    cache.NewRing[Record](DefaultCacheSize),
		listLimit: DefaultListLimit,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// createdAt is truncated to microseconds, the finest precision every store
// keeps, so a stored record and its cached copy carry the same timestamp.
func (a *Aggregator) createdAt() time.Time {
	return a.now().UTC().Truncate(time.Microsecond)
}

// Handle turns an anomaly event into an alert. It returns nil, nil when the
// event does not classify as an alert.
//
// When the store rejects the record it is still cached and announced, and
// the returned error wraps ErrDegradedWrite. When enrichment fails nothing
// is stored or cached.
func (a *Aggregator) Handle(ctx context.Context, ev detection.AnomalyEvent) (*Record, error) {
	alertType, message, ok := Classify(ev)
	if !ok {
		return nil, nil
	}

	res, err := a.enricher.Enrich(ctx, ev.Src)
	if err != nil {
		return nil, fmt.Errorf("enrich %s: %w", ev.Src, err)
	}

	rec := newRecord(ev, alertType, message, &res, a.createdAt())

	var writeErr error
	if a.store != nil {
		if err := a.store.Append(ctx, &rec); err != nil {
			metrics.AlertPersistFailures.Inc()
			writeErr = fmt.Errorf("%w: %w", ErrDegradedWrite, err)
			logging.Ctx(ctx).Warn().Err(err).
				Str("type", rec.Type).
				Str("src", rec.Src).
				Msg("Failed to persist alert, keeping cached copy")
		}
	}

	a.recent.Push(rec)
	metrics.AlertsCreated.WithLabelValues(rec.Type, string(rec.Severity)).Inc()

	logging.Ctx(ctx).Info().
		Str("alert_id", rec.ID).
		Str("type", rec.Type).
		Str("src", rec.Src).
		Int("threat_score", rec.ThreatScore).
		Msg(message)

	a.announce(ctx, fmt.Sprintf("🚨 %s from %s — %s", rec.Type, rec.Src, message))
	return &rec, writeErr
}

func newRecord(ev detection.AnomalyEvent, alertType, message string, res *threatintel.Result, createdAt time.Time) Record {
	details := map[string]any{
		"src_ip":       ev.Src,
		"dst_ip":       ev.Packet.Dst,
		"message":      message,
		"severity":     string(res.Severity),
		"threat_score": res.Score,
		"geo":          res.GeoSummary,
		"isp":          res.ISP,
		"city":         res.Geo.City,
		"region":       res.Geo.Region,
		"country":      res.Geo.Country,
		"timezone":     res.Geo.Timezone,
		"latitude":     res.Geo.Latitude,
		"longitude":    res.Geo.Longitude,
		"anomaly":      string(ev.Kind),
	}
	if ev.Detail != nil {
		details["evidence"] = ev.Detail.Fields()
	}

	rec := Record{
		Type:        alertType,
		Details:     details,
		CreatedAt:   createdAt,
		ThreatScore: res.Score,
		GeoInfo:     res.GeoSummary,
		ISP:         res.ISP,
		Severity:    res.Severity,
		Src:         ev.Src,
		Dst:         ev.Packet.Dst,
		DNSQueries:  ev.Packet.DNSQuery,
	}
	if d, ok := ev.Detail.(detection.EntropyDetail); ok {
		entropy := d.Entropy
		rec.EntropyScore = &entropy
	}
	return rec
}

func (a *Aggregator) announce(ctx context.Context, message string) {
	if a.notifier == nil {
		return
	}
	if err := a.notifier.Send(ctx, message); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Alert notification failed")
	}
}

// InsertTest stores a synthetic high-severity alert and places it at the
// front of the recent cache. Unlike Handle, a store failure is returned
// and nothing is cached.
func (a *Aggregator) InsertTest(ctx context.Context) (*Record, error) {
	rec := Record{
		Type: TypeSyntheticTest,
		Details: map[string]any{
			"src_ip":       "1.2.3.4",
			"dst_ip":       "5.6.7.8",
			"message":      "Synthetic test alert",
			"severity":     string(threatintel.SeverityHigh),
			"threat_score": 9,
			"geo":          "Toronto, Ontario, Canada",
			"isp":          "Test ISP",
		},
		CreatedAt:   a.createdAt(),
		ThreatScore: 9,
		GeoInfo:     "Toronto, Ontario, Canada",
		ISP:         "Test ISP",
		Severity:    threatintel.SeverityHigh,
		Src:         "1.2.3.4",
		Dst:         "5.6.7.8",
	}

	if a.store != nil {
		if err := a.store.Append(ctx, &rec); err != nil {
			return nil, fmt.Errorf("insert test alert: %w", err)
		}
	}
	a.recent.PushFront(rec)

	logging.Ctx(ctx).Info().Str("alert_id", rec.ID).Msg("Inserted synthetic test alert")
	return &rec, nil
}

// List returns persisted and cached alerts merged, deduplicated by Key and
// sorted newest first. A store failure is logged and the cache is served
// alone. limit bounds the store read and the result; zero or less uses the
// configured default for the store and returns the whole merge.
func (a *Aggregator) List(ctx context.Context, limit int) []Record {
	storeLimit := limit
	if storeLimit <= 0 {
		storeLimit = a.listLimit
	}

	var persisted []Record
	if a.store != nil {
		var err error
		persisted, err = a.store.Recent(ctx, storeLimit)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("Failed to read persisted alerts, serving cache only")
			persisted = nil
		}
	}

	combined := append(persisted, a.recent.Snapshot()...)
	seen := make(map[string]struct{}, len(combined))
	out := make([]Record, 0, len(combined))
	for i := range combined {
		key := combined[i].Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, combined[i])
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Resolve marks the alert resolved in the store and in the cache. Cached
// records without an ID match on their composite key.
func (a *Aggregator) Resolve(ctx context.Context, id string) error {
	cached := a.recent.Update(func(r *Record) bool {
		if r.Key() != id {
			return false
		}
		r.Resolved = true
		return true
	})

	if a.store == nil {
		if cached == 0 {
			return ErrNotFound
		}
		return nil
	}

	err := a.store.Resolve(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound) && cached > 0:
		return nil
	case errors.Is(err, ErrNotFound):
		return err
	default:
		return fmt.Errorf("resolve alert %s: %w", id, err)
	}
}

// CacheLen returns the number of cached alerts.
func (a *Aggregator) CacheLen() int {
	return a.recent.Len()
}
