// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/cyberanalyzer/internal/logging"
)

// Key prefixes. Records live under alert:<created-at nanos>:<id> so that a
// reverse prefix scan yields the newest first; alert_id:<id> points at the
// record key.
const (
	alertKeyPrefix   = "alert:"
	alertIDKeyPrefix = "alert_id:"
)

// BadgerStore implements Store on an embedded BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) a store at path. With inMemory set the
// path is ignored and nothing touches disk.
func OpenBadgerStore(path string, inMemory bool) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger alert store: %w", err)
	}

	logging.Info().
		Str("path", path).
		Bool("in_memory", inMemory).
		Msg("Alert store opened")
	return &BadgerStore{db: db}, nil
}

// NewBadgerStore wraps an already open database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func recordKey(createdAt time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", alertKeyPrefix, createdAt.UnixNano(), id))
}

// Append stores rec under a new time-ordered ID.
func (s *BadgerStore) Append(_ context.Context, rec *Record) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate alert id: %w", err)
	}

	stored := *rec
	stored.ID = id.String()
	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	key := recordKey(stored.CreatedAt, stored.ID)
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set alert: %w", err)
		}
		if err := txn.Set([]byte(alertIDKeyPrefix+stored.ID), key); err != nil {
			return fmt.Errorf("set alert index: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	rec.ID = stored.ID
	return nil
}

// Recent returns up to limit records, newest first.
func (s *BadgerStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	records := make([]Record, 0, min(limit, 256))
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(alertKeyPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append([]byte(alertKeyPrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(records) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec Record
			item := it.Item()
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode alert %s: %w", item.Key(), err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return records, nil
}

// Resolve marks the record resolved.
func (s *BadgerStore) Resolve(_ context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		idx, err := txn.Get([]byte(alertIDKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get alert index: %w", err)
		}
		key, err := idx.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("read alert index: %w", err)
		}

		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get alert: %w", err)
		}

		var rec Record
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return fmt.Errorf("decode alert: %w", err)
		}
		if rec.Resolved {
			return nil
		}
		rec.Resolved = true

		data, err := json.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("marshal alert: %w", err)
		}
		return txn.Set(key, data)
	})
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
