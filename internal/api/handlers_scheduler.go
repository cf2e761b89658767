// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package api

import (
	"net/http"

	"github.com/tomtom215/csvingest/internal/logging"
	"github.com/tomtom215/csvingest/internal/runstore"
)

// RunsResponse is the body of GET /api/csv/runs.
type RunsResponse struct {
	Runs  []runstore.Run `json:"runs"`
	Count int            `json:"count"`
	Limit int            `json:"limit"`
}

// SchedulerHealth returns the scheduler gate snapshot.
// GET /api/csv/scheduler
func (h *Handler) SchedulerHealth(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		h.respondError(w, r, http.StatusServiceUnavailable, "Scheduler is not configured")
		return
	}
	writeJSON(w, http.StatusOK, h.scheduler.Snapshot())
}

// ListRuns returns recent ingestion runs, newest first.
// GET /api/csv/runs?limit=N
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.recorder == nil || h.recorder.Store() == nil {
		h.respondError(w, r, http.StatusServiceUnavailable, "Run history is not configured")
		return
	}

	req, verr := parseRunsRequest(r, min(defaultRunsLimit, h.maxRuns))
	if verr != nil {
		h.respondValidationError(w, r, verr.FieldMap())
		return
	}
	limit := min(req.Limit, h.maxRuns)

	runs, err := h.recorder.Store().List(r.Context(), limit)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to list ingestion runs")
		h.respondError(w, r, http.StatusInternalServerError, MsgUnexpectedError)
		return
	}
	if runs == nil {
		runs = []runstore.Run{}
	}

	writeJSON(w, http.StatusOK, RunsResponse{Runs: runs, Count: len(runs), Limit: limit})
}
