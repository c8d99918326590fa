// Package handlers provides JSON response helpers shared by HTTP handlers.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the JSON body written for failed requests.
// Kind is a stable machine-readable category and may be empty.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// RespondJSON writes data as JSON with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError logs err and writes it as an ErrorResponse.
// Server errors are logged at error level, client errors at warn.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	RespondErrorKind(w, logger, status, "", err, err)
}

// RespondErrorKind logs cause and writes public with kind. It keeps the
// detail of cause in the log while the client sees only public.
func RespondErrorKind(w http.ResponseWriter, logger *slog.Logger, status int, kind string, public, cause error) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, "request failed", "status", status, "kind", kind, "error", cause)

	RespondJSON(w, status, ErrorResponse{Error: public.Error(), Kind: kind})
}
