// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/tomtom215/csvingest/internal/ingest"
	"github.com/tomtom215/csvingest/internal/validation"
)

// UploadRequest is the shape of POST /api/csv/upload.
type UploadRequest struct {
	File *multipart.FileHeader `form:"file" validate:"required"`
}

// RunsRequest holds the query parameters of GET /api/csv/runs.
type RunsRequest struct {
	Limit int `form:"limit" validate:"gte=1,lte=1000"`
}

// maxMultipartMemory is kept in memory; larger parts spill to temp files.
const maxMultipartMemory = 32 << 20

// parseUploadRequest reads the multipart form. A body that is not a
// multipart form yields a request with no file, which fails validation.
// Any other failure means the body could not be read and is returned as a
// *ingest.FileProcessingError.
func parseUploadRequest(r *http.Request) (UploadRequest, error) {
	var req UploadRequest
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return req, nil
		}
		return req, ingest.NewFileProcessingError(err)
	}
	if files := r.MultipartForm.File["file"]; len(files) > 0 {
		req.File = files[0]
	}
	return req, nil
}

// parseRunsRequest applies defaultLimit when limit is absent. A limit that
// is not an integer is reported as a validation failure.
func parseRunsRequest(r *http.Request, defaultLimit int) (RunsRequest, *validation.RequestValidationError) {
	req := RunsRequest{Limit: defaultLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			req.Limit = 0
		} else {
			req.Limit = n
		}
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		return req, verr
	}
	return req, nil
}
