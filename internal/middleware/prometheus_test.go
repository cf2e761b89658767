// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/csvingest/internal/metrics"
)

func TestPrometheusMetrics_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		writeBody  bool
		wantStatus string
	}{
		{"implicit 200 on write", 0, true, "200"},
		{"explicit 422", http.StatusUnprocessableEntity, true, "422"},
		{"explicit 500 no body", http.StatusInternalServerError, false, "500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := PrometheusMetrics(func(w http.ResponseWriter, r *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				if tt.writeBody {
					_, _ = w.Write([]byte("body"))
				}
			})

			path := "/metrics-test/" + tt.wantStatus
			before := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues(http.MethodPost, path, tt.wantStatus))

			req := httptest.NewRequest(http.MethodPost, path, nil)
			handler(httptest.NewRecorder(), req)

			after := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues(http.MethodPost, path, tt.wantStatus))
			if after-before != 1 {
				t.Errorf("APIRequestsTotal delta = %v, want 1", after-before)
			}
		})
	}
}

func TestPrometheusMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return PrometheusMetrics(next.ServeHTTP)
	})
	r.Get("/api/csv/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	before := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/api/csv/runs/{id}", "200"))

	for _, id := range []string{"a", "b", "c"} {
		req := httptest.NewRequest(http.MethodGet, "/api/csv/runs/"+id, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	after := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/api/csv/runs/{id}", "200"))
	if after-before != 3 {
		t.Errorf("pattern-labelled delta = %v, want 3", after-before)
	}
}

func TestPrometheusMetrics_ActiveRequestsBalanced(t *testing.T) {
	start := testutil.ToFloat64(metrics.APIActiveRequests)

	var during float64
	handler := PrometheusMetrics(func(w http.ResponseWriter, r *http.Request) {
		during = testutil.ToFloat64(metrics.APIActiveRequests)
	})
	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if during != start+1 {
		t.Errorf("active during request = %v, want %v", during, start+1)
	}
	if got := testutil.ToFloat64(metrics.APIActiveRequests); got != start {
		t.Errorf("active after request = %v, want %v", got, start)
	}
}
