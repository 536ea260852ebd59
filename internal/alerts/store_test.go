// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/cyberanalyzer/internal/config"
	"github.com/tomtom215/cyberanalyzer/internal/threatintel"
)

var storeBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testRecord(offset time.Duration, src string) Record {
	return Record{
		Type: TypeUnusualPort,
		Details: map[string]any{
			"src_ip":  src,
			"message": "Connection to uncommon port 4444",
		},
		CreatedAt:   storeBase.Add(offset),
		ThreatScore: 12,
		GeoInfo:     "Toronto, Ontario, Canada",
		ISP:         "Example ISP",
		Severity:    threatintel.SeverityHigh,
		Src:         src,
		Dst:         "10.0.0.1",
	}
}

func setupBadgerStore(t *testing.T) Store {
	t.Helper()
	s, err := OpenBadgerStore(t.TempDir(), false)
	if err != nil {
		t.Fatalf("OpenBadgerStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func setupDuckDBStore(t *testing.T) Store {
	t.Helper()
	s, err := OpenDuckDBStore(context.Background(), "")
	if err != nil {
		t.Fatalf("OpenDuckDBStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStores(t *testing.T) {
	backends := []struct {
		name  string
		setup func(*testing.T) Store
	}{
		{"badger", setupBadgerStore},
		{"duckdb", setupDuckDBStore},
	}

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			t.Run("AppendAssignsID", func(t *testing.T) {
				s := b.setup(t)
				rec := testRecord(0, "1.2.3.4")
				if err := s.Append(context.Background(), &rec); err != nil {
					t.Fatalf("Append() error = %v", err)
				}
				if rec.ID == "" {
					t.Error("Append() did not set ID")
				}
			})

			t.Run("RecentNewestFirst", func(t *testing.T) {
				s := b.setup(t)
				ctx := context.Background()
				// Inserted out of order on purpose.
				for _, off := range []time.Duration{2 * time.Second, 0, 3 * time.Second, time.Second} {
					rec := testRecord(off, "1.2.3.4")
					if err := s.Append(ctx, &rec); err != nil {
						t.Fatal(err)
					}
				}

				got, err := s.Recent(ctx, 3)
				if err != nil {
					t.Fatalf("Recent() error = %v", err)
				}
				if len(got) != 3 {
					t.Fatalf("len = %d, want 3", len(got))
				}
				for i, want := range []time.Duration{3 * time.Second, 2 * time.Second, time.Second} {
					if !got[i].CreatedAt.Equal(storeBase.Add(want)) {
						t.Errorf("got[%d].CreatedAt = %v, want %v", i, got[i].CreatedAt, storeBase.Add(want))
					}
				}
			})

			t.Run("RoundTrip", func(t *testing.T) {
				s := b.setup(t)
				ctx := context.Background()
				rec := testRecord(0, "9.9.9.9")
				entropy := 7.9
				rec.EntropyScore = &entropy
				rec.DNSQueries = "example.com"
				if err := s.Append(ctx, &rec); err != nil {
					t.Fatal(err)
				}

				got, err := s.Recent(ctx, 10)
				if err != nil || len(got) != 1 {
					t.Fatalf("Recent() = %d records, %v", len(got), err)
				}
				r := got[0]
				if r.ID != rec.ID || r.Type != rec.Type || r.Src != "9.9.9.9" || r.Dst != "10.0.0.1" {
					t.Errorf("identity fields differ: %+v", r)
				}
				if r.ThreatScore != 12 || r.Severity != threatintel.SeverityHigh || r.ISP != "Example ISP" {
					t.Errorf("enrichment fields differ: %+v", r)
				}
				if r.EntropyScore == nil || *r.EntropyScore != 7.9 {
					t.Errorf("EntropyScore = %v, want 7.9", r.EntropyScore)
				}
				if r.Details["message"] != "Connection to uncommon port 4444" {
					t.Errorf("Details = %v", r.Details)
				}
				if !r.CreatedAt.Equal(rec.CreatedAt) || r.Key() != rec.Key() {
					t.Errorf("CreatedAt = %v, want %v", r.CreatedAt, rec.CreatedAt)
				}
			})

			t.Run("Resolve", func(t *testing.T) {
				s := b.setup(t)
				ctx := context.Background()
				rec := testRecord(0, "1.2.3.4")
				if err := s.Append(ctx, &rec); err != nil {
					t.Fatal(err)
				}
				if err := s.Resolve(ctx, rec.ID); err != nil {
					t.Fatalf("Resolve() error = %v", err)
				}
				got, err := s.Recent(ctx, 1)
				if err != nil {
					t.Fatal(err)
				}
				if !got[0].Resolved {
					t.Error("record not resolved")
				}
				if err := s.Resolve(ctx, "missing"); !errors.Is(err, ErrNotFound) {
					t.Errorf("Resolve(missing) error = %v, want ErrNotFound", err)
				}
			})

			t.Run("ZeroLimit", func(t *testing.T) {
				s := b.setup(t)
				got, err := s.Recent(context.Background(), 0)
				if err != nil || len(got) != 0 {
					t.Errorf("Recent(0) = %v, %v", got, err)
				}
			})
		})
	}
}

func TestBadgerStore_InMemory(t *testing.T) {
	s, err := OpenBadgerStore("", true)
	if err != nil {
		t.Fatalf("OpenBadgerStore() error = %v", err)
	}
	defer s.Close()

	rec := testRecord(0, "1.2.3.4")
	if err := s.Append(context.Background(), &rec); err != nil {
		t.Fatal(err)
	}
	got, err := s.Recent(context.Background(), 5)
	if err != nil || len(got) != 1 {
		t.Errorf("Recent() = %d, %v", len(got), err)
	}
}

func TestBadgerStore_Persists(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenBadgerStore(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	rec := testRecord(0, "1.2.3.4")
	if err := s.Append(context.Background(), &rec); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = OpenBadgerStore(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Recent(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != rec.ID {
		t.Errorf("reopened store = %+v, want record %s", got, rec.ID)
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, err := OpenStore(ctx, &config.StoreConfig{Backend: "none"})
	if err != nil || s != nil {
		t.Errorf("none backend = %v, %v; want nil, nil", s, err)
	}

	s, err = OpenStore(ctx, &config.StoreConfig{Backend: "badger", InMemory: true})
	if err != nil {
		t.Fatalf("badger backend error = %v", err)
	}
	_ = s.Close()

	if _, err := OpenStore(ctx, &config.StoreConfig{Backend: "postgres"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
