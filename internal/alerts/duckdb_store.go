// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package alerts

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/cyberanalyzer/internal/logging"
	"github.com/tomtom215/cyberanalyzer/internal/threatintel"
)

const alertSelectColumns = `id, type, details, created_at, resolved, threat_score,
		COALESCE(geo_info, '') as geo_info,
		COALESCE(isp, '') as isp,
		COALESCE(severity, '') as severity,
		COALESCE(src, '') as src,
		COALESCE(dst, '') as dst,
		entropy_score,
		COALESCE(dns_queries, '') as dns_queries`

// DuckDBStore implements Store on DuckDB through database/sql. Details are
// kept as JSON text so no extension has to be loaded.
type DuckDBStore struct {
	db *sql.DB
}

// OpenDuckDBStore opens the database file at path, or an in-memory database
// when path is empty, and creates the schema.
func OpenDuckDBStore(ctx context.Context, path string) (*DuckDBStore, error) {
	// An empty path before the query string opens an in-memory database.
	dsn := path + "?autoinstall_known_extensions=false&autoload_known_extensions=false"

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb alert store: %w", err)
	}

	s := NewDuckDBStore(db)
	if err := s.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logging.Info().Str("path", path).Msg("Alert store opened")
	return s, nil
}

// NewDuckDBStore wraps an open database. Call InitSchema before use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// InitSchema creates the alerts table if it does not exist.
func (s *DuckDBStore) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			details TEXT,
			created_at TIMESTAMP NOT NULL,
			resolved BOOLEAN DEFAULT false,
			threat_score INTEGER DEFAULT 0,
			geo_info TEXT,
			isp TEXT,
			severity TEXT,
			src TEXT,
			dst TEXT,
			entropy_score DOUBLE,
			dns_queries TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}
	return nil
}

// Append inserts rec under a new time-ordered ID.
func (s *DuckDBStore) Append(ctx context.Context, rec *Record) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate alert id: %w", err)
	}

	details, err := json.Marshal(rec.Details)
	if err != nil {
		return fmt.Errorf("marshal alert details: %w", err)
	}

	// The driver binds plain values only, so the optional score is unwrapped.
	var entropy any
	if rec.EntropyScore != nil {
		entropy = *rec.EntropyScore
	}

	query := `INSERT INTO alerts
		(id, type, details, created_at, resolved, threat_score, geo_info, isp, severity, src, dst, entropy_score, dns_queries)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		id.String(),
		rec.Type,
		string(details),
		rec.CreatedAt.UTC(),
		rec.Resolved,
		rec.ThreatScore,
		rec.GeoInfo,
		rec.ISP,
		string(rec.Severity),
		rec.Src,
		rec.Dst,
		entropy,
		rec.DNSQueries,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	rec.ID = id.String()
	return nil
}

// Recent returns up to limit records, newest first.
func (s *DuckDBStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `SELECT ` + alertSelectColumns + ` FROM alerts ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := scanAlertRow(rows, &rec); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// scanAlertRow scans one row selected with alertSelectColumns.
func scanAlertRow(scanner interface {
	Scan(dest ...any) error
}, rec *Record) error {
	var (
		details  sql.NullString
		severity string
		entropy  sql.NullFloat64
	)

	if err := scanner.Scan(
		&rec.ID,
		&rec.Type,
		&details,
		&rec.CreatedAt,
		&rec.Resolved,
		&rec.ThreatScore,
		&rec.GeoInfo,
		&rec.ISP,
		&severity,
		&rec.Src,
		&rec.Dst,
		&entropy,
		&rec.DNSQueries,
	); err != nil {
		return err
	}

	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.Severity = threatintel.Severity(severity)
	if entropy.Valid {
		v := entropy.Float64
		rec.EntropyScore = &v
	}
	if details.Valid && details.String != "" {
		if err := json.Unmarshal([]byte(details.String), &rec.Details); err != nil {
			return fmt.Errorf("decode details: %w", err)
		}
	}
	return nil
}

// Resolve marks the record resolved.
func (s *DuckDBStore) Resolve(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE alerts SET resolved = true WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database.
func (s *DuckDBStore) Close() error {
	return s.db.Close()
}
