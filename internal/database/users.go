// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/csvingest/internal/logging"
	"github.com/tomtom215/csvingest/internal/metrics"
	"github.com/tomtom215/csvingest/internal/models"
)

const insertUserQuery = `INSERT INTO users (id, name, age, email, source, created_at) VALUES (?, ?, ?, ?, ?, ?)`

// SaveUsers inserts every user in one transaction. Either all rows commit or
// none do. Missing IDs and timestamps are assigned here, and the caller's
// slice is updated in place so it reflects what was stored.
func (db *DB) SaveUsers(ctx context.Context, users []models.User) (err error) {
	if len(users) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("INSERT", "users", time.Since(start), err)
	}()

	// ctx is used as given. A batch insert runs to completion unless the
	// caller cancels it.
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().
					Err(rbErr).
					AnErr("original_error", err).
					Msg("Transaction rollback failed")
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertUserQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer closeWithLog(stmt, nil, "statement")

	now := time.Now()
	for i := range users {
		u := &users[i]
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}

		if _, err = stmt.ExecContext(ctx, u.ID, u.Name, u.Age, u.Email, u.Source, u.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert user %d of %d: %w", i+1, len(users), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CountUsers returns the number of persisted users.
func (db *DB) CountUsers(ctx context.Context) (int64, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var n int64
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
