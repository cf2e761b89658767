// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/tomtom215/csvingest/internal/ingest"
	"github.com/tomtom215/csvingest/internal/logging"
	"github.com/tomtom215/csvingest/internal/metrics"
	"github.com/tomtom215/csvingest/internal/middleware"
	"github.com/tomtom215/csvingest/internal/models"
	"github.com/tomtom215/csvingest/internal/runstore"
	"github.com/tomtom215/csvingest/internal/validation"
)

// UploadCSV ingests the multipart part named "file".
// POST /api/csv/upload
//
// 200 text/plain on success. Failures return ErrorResponse:
// 400 for a missing part or rejected file, 422 for malformed CSV and
// 500 for read or storage failures.
func (h *Handler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logging.Ctx(ctx)

	req, err := parseUploadRequest(r)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read upload body")
		h.finishRejected(ctx, "", start, err)
		status, message := statusFor(err)
		h.respondError(w, r, status, message)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		log.Debug().Err(verr).Msg("Upload request failed validation")
		h.finishRejected(ctx, "", start, &ingest.InvalidInputError{Message: verr.Error()})
		h.respondValidationError(w, r, verr.FieldMap())
		return
	}

	n, err := h.ingestUpload(ctx, req)
	if err != nil {
		status, message := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("filename", req.File.Filename).Msg("Upload ingestion failed")
		} else {
			log.Warn().Err(err).Str("filename", req.File.Filename).Msg("Upload rejected")
		}
		h.respondError(w, r, status, message)
		return
	}

	log.Info().Str("filename", req.File.Filename).Int("persisted", n).Msg("CSV upload ingested")
	writeText(w, http.StatusOK, MsgUploadSuccess)
}

// ingestUpload validates the file, opens it and runs the pipeline. Every
// path records exactly one run.
func (h *Handler) ingestUpload(ctx context.Context, req UploadRequest) (int, error) {
	start := time.Now()
	fh := req.File

	upload := ingest.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	}
	if err := h.validator.Validate(upload); err != nil {
		h.finishRejected(ctx, fh.Filename, start, err)
		return 0, err
	}

	f, err := fh.Open()
	if err != nil {
		ferr := ingest.NewFileProcessingError(err)
		h.finishRejected(ctx, fh.Filename, start, ferr)
		return 0, ferr
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logging.Ctx(ctx).Debug().Err(cerr).Msg("Failed to close uploaded file")
		}
	}()

	n, err := h.safeIngest(ctx, f)
	h.record(ctx, fh.Filename, start, n, err)
	return n, err
}

// safeIngest runs the ingester and turns a panic into an unclassified
// error, so the client still gets ErrorResponse and the run is recorded.
func (h *Handler) safeIngest(ctx context.Context, r io.Reader) (n int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Ctx(ctx).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("Panic during upload ingestion")
			n, err = 0, fmt.Errorf("panic during upload ingestion: %v", rec)
		}
	}()
	return h.ingester.Ingest(ctx, r, models.SourceUpload)
}

// finishRejected accounts for an upload that never reached the pipeline.
// The pipeline records its own metrics, so only these paths do it here.
func (h *Handler) finishRejected(ctx context.Context, filename string, start time.Time, err error) {
	metrics.RecordIngestion(models.SourceUpload, ingest.OutcomeLabel(err), time.Since(start), 0)
	h.record(ctx, filename, start, 0, err)
}

func (h *Handler) record(ctx context.Context, filename string, start time.Time, n int, err error) {
	if h.recorder == nil {
		return
	}
	run := runstore.NewRun(models.SourceUpload, start, time.Now(), n, err)
	run.Filename = filename
	run.RequestID = middleware.GetRequestID(ctx)
	h.recorder.Record(ctx, run)
}
