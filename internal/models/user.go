// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

// Package models defines the data structures shared by the ingestion,
// persistence and API layers.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Ingestion sources recorded on every persisted User.
const (
	SourceUpload    = "upload"
	SourceScheduled = "scheduled"
)

// Record is one parsed CSV data row (name,age,email).
type Record struct {
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Email string `json:"email"`
}

// User is the persisted entity. ID and CreatedAt are assigned by the
// database layer when left zero. There is no uniqueness constraint on any
// business field: re-ingesting the same file stores the rows again.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Email     string    `json:"email"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUser maps a parsed record to an unsaved User.
func NewUser(rec Record, source string) User {
	return User{
		Name:   rec.Name,
		Age:    rec.Age,
		Email:  rec.Email,
		Source: source,
	}
}
