package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/pestwatch/pkg/handlers"
)

func TestRespondJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	handlers.RespondJSON(rec, http.StatusCreated, map[string]string{"status": "ok"})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		kind      string
		wantLevel string
	}{
		{"client error", http.StatusBadRequest, "validation", "level=WARN"},
		{"server error", http.StatusBadGateway, "prediction", "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))

			public := errors.New("model prediction failed")
			cause := fmt.Errorf("%w: dial tcp 10.0.0.5:8501: connection refused", public)

			rec := httptest.NewRecorder()
			handlers.RespondErrorKind(rec, logger, tt.status, tt.kind, public, cause)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}

			var body handlers.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != "model prediction failed" || body.Kind != tt.kind {
				t.Errorf("body = %+v", body)
			}
			if !strings.Contains(logs.String(), "connection refused") {
				t.Errorf("cause not logged: %s", logs.String())
			}
			if !strings.Contains(logs.String(), tt.wantLevel) {
				t.Errorf("expected %s in %s", tt.wantLevel, logs.String())
			}
		})
	}
}

func TestRespondErrorOmitsEmptyKind(t *testing.T) {
	rec := httptest.NewRecorder()
	handlers.RespondError(rec, slog.New(slog.DiscardHandler), http.StatusNotFound, errors.New("record not found"))

	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"record not found"}` {
		t.Errorf("body = %s", got)
	}
}
