// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/csvingest/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewChiMiddlewareFromSecurity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		sec          *config.SecurityConfig
		wantRequests int
		wantWindow   time.Duration
		wantDisabled bool
	}{
		{"nil uses defaults", nil, 100, time.Minute, false},
		{"zero values keep defaults", &config.SecurityConfig{}, 100, time.Minute, false},
		{
			name:         "overrides",
			sec:          &config.SecurityConfig{RateLimitReqs: 7, RateLimitWindow: 10 * time.Second, RateLimitDisabled: true},
			wantRequests: 7,
			wantWindow:   10 * time.Second,
			wantDisabled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewChiMiddlewareFromSecurity(tt.sec)
			if m.config.RateLimitRequests != tt.wantRequests {
				t.Errorf("RateLimitRequests = %d, want %d", m.config.RateLimitRequests, tt.wantRequests)
			}
			if m.config.RateLimitWindow != tt.wantWindow {
				t.Errorf("RateLimitWindow = %v, want %v", m.config.RateLimitWindow, tt.wantWindow)
			}
			if m.config.RateLimitDisabled != tt.wantDisabled {
				t.Errorf("RateLimitDisabled = %v, want %v", m.config.RateLimitDisabled, tt.wantDisabled)
			}
		})
	}
}

func TestRateLimit_DisabledIsPassthrough(t *testing.T) {
	t.Parallel()

	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 1
	cfg.RateLimitDisabled = true
	m := NewChiMiddleware(cfg)

	for _, mw := range []func(http.Handler) http.Handler{m.RateLimit(), m.RateLimitUpload(), m.RateLimitHealth()} {
		h := mw(okHandler())
		for i := 0; i < 5; i++ {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			if w.Code != http.StatusOK {
				t.Fatalf("request %d status = %d", i, w.Code)
			}
		}
	}
}

func TestRateLimit_OnLimitHandler(t *testing.T) {
	t.Parallel()

	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 1
	cfg.RateLimitOnLimit = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	h := NewChiMiddleware(cfg).RateLimit()(okHandler())

	codes := make([]int, 2)
	for i := range codes {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "198.51.100.7:1234"
		h.ServeHTTP(w, req)
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusServiceUnavailable {
		t.Errorf("codes = %v, want [200 503]", codes)
	}
}

func TestCORS_Preflight(t *testing.T) {
	t.Parallel()

	cfg := DefaultChiMiddlewareConfig()
	cfg.CORSAllowedOrigins = []string{"https://ops.example.com"}
	h := NewChiMiddleware(cfg).CORS()(okHandler())

	tests := []struct {
		name       string
		origin     string
		wantHeader string
	}{
		{"allowed origin", "https://ops.example.com", "https://ops.example.com"},
		{"unknown origin", "https://evil.example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodOptions, "/api/csv/upload", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantHeader {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantHeader)
			}
		})
	}
}

func TestAPISecurityHeaders_HSTS(t *testing.T) {
	t.Parallel()

	h := APISecurityHeaders()(okHandler())

	plain := httptest.NewRecorder()
	h.ServeHTTP(plain, httptest.NewRequest(http.MethodGet, "/", nil))
	if plain.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS set on plain HTTP")
	}
	if plain.Header().Get("Cache-Control") != "no-store" {
		t.Error("missing Cache-Control: no-store")
	}

	proxied := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	h.ServeHTTP(proxied, req)
	if proxied.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS missing behind TLS proxy")
	}
}
