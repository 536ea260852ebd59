// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package alerts

import (
	"context"
	"fmt"

	"github.com/tomtom215/cyberanalyzer/internal/config"
)

// Store persists alert records.
type Store interface {
	// Append persists rec and sets rec.ID on success.
	Append(ctx context.Context, rec *Record) error

	// Recent returns up to limit records, most recent first.
	Recent(ctx context.Context, limit int) ([]Record, error)

	// Resolve marks the record with the given ID resolved. It returns
	// ErrNotFound when no such record exists.
	Resolve(ctx context.Context, id string) error

	Close() error
}

// OpenStore opens the backend named in cfg. It returns a nil Store for the
// "none" backend; the Aggregator then keeps alerts in its cache only.
func OpenStore(ctx context.Context, cfg *config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "badger":
		s, err := OpenBadgerStore(cfg.Path, cfg.InMemory)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "duckdb":
		path := cfg.Path
		if cfg.InMemory {
			path = ""
		}
		s, err := OpenDuckDBStore(ctx, path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown alert store backend %q", cfg.Backend)
	}
}
