package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-verify-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// VerifiedEnvelope wraps signup and verify responses.
type VerifiedEnvelope struct {
	Verified bool `json:"verified"`
}

// AuthURLEnvelope wraps authorize responses.
type AuthURLEnvelope struct {
	AuthURL string `json:"auth_url"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}

// writeServiceError maps a service error onto its HTTP status.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var pe *domain.ProviderError
	switch {
	case errors.Is(err, domain.ErrNotModified):
		w.WriteHeader(http.StatusNotModified)
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &pe):
		status := http.StatusBadGateway
		if pe.Status >= 400 && pe.Status < 500 {
			status = pe.Status
		}
		slog.Warn("provider call failed", "path", r.URL.Path, "op", pe.Op, "status", pe.Status, "err", pe.Message)
		writeError(w, status, pe.Message)
	default:
		slog.Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
