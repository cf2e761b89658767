// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package runstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/csvingest/internal/config"
)

const (
	keyPrefix = "run:"

	// keyTimeFormat is RFC 3339 with a fixed nine-digit fraction, always in
	// UTC, so byte order equals chronological order.
	keyTimeFormat = "2006-01-02T15:04:05.000000000Z"
)

// runKey returns run:<timestamp>:<id>.
func runKey(run Run) []byte {
	return []byte(keyPrefix + run.StartedAt.UTC().Format(keyTimeFormat) + ":" + run.ID)
}

// BadgerStore is a BadgerDB-backed run history.
type BadgerStore struct {
	db        *badger.DB
	retention time.Duration
	ownsDB    bool
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore wraps an already-open database. The caller keeps ownership
// of db. A zero retention keeps runs forever.
func NewBadgerStore(db *badger.DB, retention time.Duration) *BadgerStore {
	return &BadgerStore{db: db, retention: retention}
}

// OpenBadgerStore opens a BadgerDB at path and closes it with the store.
func OpenBadgerStore(path string, retention time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for runs: %w", err)
	}
	return &BadgerStore{db: db, retention: retention, ownsDB: true}, nil
}

// Open returns the store described by cfg: BadgerDB when a path is set,
// memory otherwise.
func Open(cfg config.RunStoreConfig) (Store, error) {
	if cfg.Path == "" {
		return NewInMemoryStore(cfg.MaxList), nil
	}
	store, err := OpenBadgerStore(cfg.Path, cfg.Retention)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Save writes run under its time-ordered key.
func (s *BadgerStore) Save(_ context.Context, run Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	entry := badger.NewEntry(runKey(run), data)
	if s.retention > 0 {
		entry = entry.WithTTL(s.retention)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(entry)
	})
}

// List returns up to limit runs, newest first.
func (s *BadgerStore) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		return []Run{}, nil
	}

	runs := make([]Run, 0, limit)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(keyPrefix)
		opts.PrefetchSize = limit

		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts at the greatest key <= seek.
		seek := append([]byte(keyPrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix) && len(runs) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var run Run
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &run)
			}); err != nil {
				return fmt.Errorf("decode run %s: %w", it.Item().Key(), err)
			}
			runs = append(runs, run)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Close closes the database if the store opened it.
func (s *BadgerStore) Close() error {
	if s.ownsDB && s.db != nil {
		return s.db.Close()
	}
	return nil
}
