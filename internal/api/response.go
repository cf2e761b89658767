// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/csvingest/internal/ingest"
	"github.com/tomtom215/csvingest/internal/logging"
)

// Upload response messages.
const (
	MsgUploadSuccess        = "CSV file uploaded and data persisted successfully!"
	MsgValidationFailed     = "Validation failed"
	MsgUnexpectedError      = "An unexpected error occurred while processing the request"
	prefixFileProcessingErr = "Error processing uploaded file: "
	prefixCsvFormatErr      = "Error processing CSV file: "
)

// errorTimestampLayout renders local time without a zone, microsecond
// precision, trailing zeros trimmed.
const errorTimestampLayout = "2006-01-02T15:04:05.999999"

// ErrorResponse is the JSON body returned for every failed request.
type ErrorResponse struct {
	APIPath        string `json:"apiPath"`
	HTTPStatusCode int    `json:"httpStatusCode"`
	ErrorMessage   string `json:"errorMessage"`
	ErrorTimestamp string `json:"errorTimestamp"`
}

// ValidationErrorResponse adds per-field messages to ErrorResponse.
type ValidationErrorResponse struct {
	ErrorResponse
	Errors map[string]string `json:"errors"`
}

func newErrorResponse(r *http.Request, status int, message string, now time.Time) ErrorResponse {
	return ErrorResponse{
		APIPath:        "uri=" + r.URL.Path,
		HTTPStatusCode: status,
		ErrorMessage:   message,
		ErrorTimestamp: now.Local().Format(errorTimestampLayout),
	}
}

// statusFor maps an ingestion error to an HTTP status and client message.
// Unclassified errors never expose their text.
func statusFor(err error) (int, string) {
	var invalid *ingest.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, invalid.Message
	case errors.Is(err, ingest.ErrCsvFormat):
		return http.StatusUnprocessableEntity, prefixCsvFormatErr + err.Error()
	case errors.Is(err, ingest.ErrFileProcessing):
		return http.StatusInternalServerError, prefixFileProcessingErr + err.Error()
	default:
		return http.StatusInternalServerError, MsgUnexpectedError
	}
}

// writeJSON encodes data with goccy/go-json.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		logging.Error().Err(err).Msg("Failed to write response")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, newErrorResponse(r, status, message, h.now()))
}

func (h *Handler) respondValidationError(w http.ResponseWriter, r *http.Request, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, ValidationErrorResponse{
		ErrorResponse: newErrorResponse(r, http.StatusBadRequest, MsgValidationFailed, h.now()),
		Errors:        fields,
	})
}
