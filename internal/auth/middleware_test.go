// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRequireBearer(t *testing.T) {
	manager := newTestManager(t, time.Hour)
	valid, err := manager.GenerateToken("ingest-bot", "writer")
	if err != nil {
		t.Fatal(err)
	}

	var gotUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := ClaimsFromContext(r.Context()); ok {
			gotUser = claims.Username
		}
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		mode       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"none mode passes without header", AuthModeNone, "", http.StatusOK, ""},
		{"jwt mode valid token", AuthModeJWT, "Bearer " + valid, http.StatusOK, "ingest-bot"},
		{"jwt mode lower-case scheme", AuthModeJWT, "bearer " + valid, http.StatusOK, "ingest-bot"},
		{"jwt mode missing header", AuthModeJWT, "", http.StatusUnauthorized, ""},
		{"jwt mode basic scheme", AuthModeJWT, "Basic dXNlcjpwYXNz", http.StatusUnauthorized, ""},
		{"jwt mode empty token", AuthModeJWT, "Bearer   ", http.StatusUnauthorized, ""},
		{"jwt mode invalid token", AuthModeJWT, "Bearer abc.def.ghi", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser = ""
			handler := RequireBearer(tt.mode, manager)(next)

			req := httptest.NewRequest(http.MethodPost, "/api/csv/upload", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if gotUser != tt.wantUser {
				t.Errorf("user = %q, want %q", gotUser, tt.wantUser)
			}
			if tt.wantStatus == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate challenge")
			}
		})
	}
}
