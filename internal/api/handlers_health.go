// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/csvingest/internal/logging"
)

// HealthLive handles liveness check requests (Kubernetes-style).
// The process is alive if it can answer.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness check requests (Kubernetes-style).
// Returns 503 until DuckDB answers a ping. A disabled scheduler does not
// make the service unready: uploads still work.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil

	statusCode := http.StatusOK
	status := "ready"
	if !dbConnected {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	body := map[string]interface{}{
		"status":             status,
		"database_connected": dbConnected,
		"uptime":             time.Since(h.startTime).Seconds(),
	}
	if h.scheduler != nil {
		body["scheduler_enabled"] = h.scheduler.Snapshot().Enabled
	}
	if counter, ok := h.db.(UserCounter); ok && dbConnected {
		if n, err := counter.CountUsers(r.Context()); err == nil {
			body["users"] = n
		} else {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to count users for readiness")
		}
	}

	writeJSON(w, statusCode, body)
}
