package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/JaimeStill/pestwatch/pkg/middleware"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func status(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	record := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	var chain middleware.Chain
	chain.Use(record("first"))
	chain.Use(record("second"))
	h := chain.Then(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if got := strings.Join(order, ","); got != "first,second,handler" {
		t.Errorf("order = %s", got)
	}
}

func TestEmptyChain(t *testing.T) {
	var chain middleware.Chain
	rec := httptest.NewRecorder()
	chain.Then(status(http.StatusAccepted)).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	enabled := &middleware.CORSConfig{
		Enabled:          true,
		Origins:          []string{"http://field.example"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           600,
	}
	wildcard := &middleware.CORSConfig{Enabled: true, Origins: []string{"*"}}

	tests := []struct {
		name       string
		cfg        *middleware.CORSConfig
		method     string
		origin     string
		preflight  bool
		wantOrigin string
		wantMaxAge string
		wantCode   int
	}{
		{"disabled", &middleware.CORSConfig{}, "GET", "http://field.example", false, "", "", http.StatusTeapot},
		{"no origin header", enabled, "GET", "", false, "", "", http.StatusTeapot},
		{"allowed", enabled, "GET", "http://field.example", false, "http://field.example", "", http.StatusTeapot},
		{"denied", enabled, "GET", "http://other.example", false, "", "", http.StatusTeapot},
		{"wildcard", wildcard, "POST", "http://any.example", false, "http://any.example", "", http.StatusTeapot},
		{"preflight", enabled, "OPTIONS", "http://field.example", true, "http://field.example", "600", http.StatusNoContent},
		{"denied preflight passes through", enabled, "OPTIONS", "http://other.example", true, "", "", http.StatusTeapot},
		{"plain options passes through", enabled, "OPTIONS", "http://field.example", false, "http://field.example", "", http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := middleware.CORS(tt.cfg)(status(http.StatusTeapot))

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", "POST")
			}
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow-origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rec.Header().Get("Access-Control-Max-Age"); got != tt.wantMaxAge {
				t.Errorf("max-age = %q, want %q", got, tt.wantMaxAge)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	const inbound = "6f1c2b0e-9d4a-4c3e-8b7a-2f5e1d0c9b8a"

	tests := []struct {
		name     string
		header   string
		wantSame bool
	}{
		{"generated", "", false},
		{"reused", inbound, true},
		{"malformed replaced", "not-an-id", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = middleware.RequestIDFrom(r.Context())
			}))

			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set(middleware.RequestIDHeader, tt.header)
			}
			h.ServeHTTP(rec, req)

			if seen == "" {
				t.Fatal("no request id on context")
			}
			if got := rec.Header().Get(middleware.RequestIDHeader); got != seen {
				t.Errorf("response header = %q, context = %q", got, seen)
			}
			if tt.wantSame != (seen == inbound) {
				t.Errorf("id = %q, reuse inbound = %v", seen, tt.wantSame)
			}
		})
	}
}

func TestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := middleware.Logger(logger)(status(http.StatusNotFound))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/records/x", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "status=404") || !strings.Contains(out, "uri=/api/records/x") || !strings.Contains(out, "level=WARN") {
		t.Errorf("log line missing fields: %s", out)
	}
}

type observer struct {
	method string
	status int
	calls  int
}

func (o *observer) ObserveRequest(method string, status int, _ time.Duration) {
	o.method = method
	o.status = status
	o.calls++
}

func TestMetrics(t *testing.T) {
	obs := &observer{}
	h := middleware.Metrics(obs)(middleware.Logger(discard())(status(http.StatusCreated)))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/predict", nil))

	if obs.calls != 1 || obs.method != "POST" || obs.status != http.StatusCreated {
		t.Errorf("observer = %+v", obs)
	}
}

func TestMetricsDefaultStatus(t *testing.T) {
	obs := &observer{}
	h := middleware.Metrics(obs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if obs.status != http.StatusOK {
		t.Errorf("status = %d, want 200", obs.status)
	}
}

type verifier struct {
	want string
}

func (v verifier) Verify(_ context.Context, raw string) (*oidc.IDToken, error) {
	if raw != v.want {
		return nil, errors.New("bad token")
	}
	return &oidc.IDToken{Subject: "admin-1"}, nil
}

func TestAuth(t *testing.T) {
	var subject string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = middleware.Subject(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := middleware.Auth(verifier{want: "good"}, discard())(inner)

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"rejected token", "Bearer bad", http.StatusUnauthorized},
		{"accepted token", "Bearer good", http.StatusOK},
		{"case-insensitive scheme", "bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject = ""
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/admin/stats", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusOK && subject != "admin-1" {
				t.Errorf("subject = %q, want admin-1", subject)
			}
			if tt.wantCode == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestCORSConfigFinalize(t *testing.T) {
	t.Setenv("CORS_ORIGINS", " http://a.example , ,http://b.example")
	t.Setenv("CORS_ENABLED", "true")

	cfg := middleware.CORSConfig{}
	if err := cfg.Finalize(&middleware.CORSEnv{Enabled: "CORS_ENABLED", Origins: "CORS_ORIGINS"}); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if !cfg.Enabled {
		t.Error("Enabled = false")
	}
	if len(cfg.Origins) != 2 || cfg.Origins[1] != "http://b.example" {
		t.Errorf("Origins = %v", cfg.Origins)
	}
	if cfg.MaxAge != 3600 || len(cfg.AllowedMethods) == 0 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestCORSConfigRejectsCredentialedWildcard(t *testing.T) {
	cfg := middleware.CORSConfig{Enabled: true, Origins: []string{"*"}, AllowCredentials: true}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("expected error for credentials with wildcard origin")
	}
}

func TestAuthConfigFinalize(t *testing.T) {
	tests := []struct {
		name    string
		cfg     middleware.AuthConfig
		wantErr bool
	}{
		{"disabled needs nothing", middleware.AuthConfig{}, false},
		{"enabled without issuer", middleware.AuthConfig{Enabled: true, ClientID: "pw"}, true},
		{"enabled without client", middleware.AuthConfig{Enabled: true, Issuer: "https://id.example"}, true},
		{"enabled and complete", middleware.AuthConfig{Enabled: true, Issuer: "https://id.example", ClientID: "pw"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("Finalize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthConfigEnv(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("AUTH_ISSUER", "https://id.example")
	t.Setenv("AUTH_CLIENT", "pestwatch")

	cfg := middleware.AuthConfig{}
	err := cfg.Finalize(&middleware.AuthEnv{Enabled: "AUTH_ENABLED", Issuer: "AUTH_ISSUER", ClientID: "AUTH_CLIENT"})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !cfg.Enabled || cfg.ClientID != "pestwatch" {
		t.Errorf("cfg = %+v", cfg)
	}
}
