// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/csvingest/internal/ingest"
)

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "empty file",
			err:         &ingest.InvalidInputError{Message: ingest.MsgFileEmpty},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "File is empty",
		},
		{
			name:        "wrong type",
			err:         &ingest.InvalidInputError{Message: ingest.MsgInvalidFileType},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid file type. Only CSV files are allowed",
		},
		{
			name:        "malformed csv",
			err:         ingest.NewCsvFormatError(3, errors.New("invalid age")),
			wantStatus:  http.StatusUnprocessableEntity,
			wantMessage: "Error processing CSV file: line 3: invalid age",
		},
		{
			name:        "read failure",
			err:         ingest.NewFileProcessingError(errors.New("unexpected EOF")),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Error processing uploaded file: unexpected EOF",
		},
		{
			name:        "wrapped csv error",
			err:         fmt.Errorf("ingest: %w", ingest.NewCsvFormatError(2, errors.New("short row"))),
			wantStatus:  http.StatusUnprocessableEntity,
			wantMessage: "Error processing CSV file: ingest: line 2: short row",
		},
		{
			name:        "persistence failure is generic",
			err:         &ingest.PersistenceError{Count: 4, Cause: errors.New("constraint violated on users_pkey")},
			wantStatus:  http.StatusInternalServerError,
			wantMessage: MsgUnexpectedError,
		},
		{
			name:        "open breaker is generic",
			err:         gobreaker.ErrOpenState,
			wantStatus:  http.StatusInternalServerError,
			wantMessage: MsgUnexpectedError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			status, message := statusFor(tt.err)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if message != tt.wantMessage {
				t.Errorf("message = %q, want %q", message, tt.wantMessage)
			}
		})
	}
}

func TestNewErrorResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"microseconds", time.Date(2026, 1, 1, 10, 0, 0, 123456789, time.Local), "2026-01-01T10:00:00.123456"},
		{"trailing zeros trimmed", time.Date(2026, 3, 9, 8, 5, 1, 500000000, time.Local), "2026-03-09T08:05:01.5"},
		{"whole second", time.Date(2026, 12, 31, 23, 59, 59, 0, time.Local), "2026-12-31T23:59:59"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/api/csv/upload", nil)
			resp := newErrorResponse(req, http.StatusUnprocessableEntity, "boom", tt.now)

			if resp.APIPath != "uri=/api/csv/upload" {
				t.Errorf("APIPath = %q", resp.APIPath)
			}
			if resp.HTTPStatusCode != http.StatusUnprocessableEntity {
				t.Errorf("HTTPStatusCode = %d", resp.HTTPStatusCode)
			}
			if resp.ErrorTimestamp != tt.want {
				t.Errorf("ErrorTimestamp = %q, want %q", resp.ErrorTimestamp, tt.want)
			}
		})
	}
}

func TestValidationErrorResponse_JSONShape(t *testing.T) {
	t.Parallel()

	h := NewHandler(HandlerConfig{})
	h.now = func() time.Time { return time.Date(2026, 1, 1, 10, 0, 0, 0, time.Local) }

	req := httptest.NewRequest(http.MethodPost, "/api/csv/upload", nil)
	w := httptest.NewRecorder()
	h.respondValidationError(w, req, map[string]string{"file": "file is required"})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"apiPath", "httpStatusCode", "errorMessage", "errorTimestamp", "errors"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q in %s", key, w.Body.String())
		}
	}
	if raw["errorMessage"] != MsgValidationFailed {
		t.Errorf("errorMessage = %v", raw["errorMessage"])
	}
	if !strings.Contains(w.Body.String(), `"file":"file is required"`) {
		t.Errorf("errors map not rendered: %s", w.Body.String())
	}
}
