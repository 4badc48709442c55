package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nomis52/taskboard/clients/engineclient"
	"github.com/nomis52/taskboard/dashboard"
	"github.com/nomis52/taskboard/lifecycle"
)

// errBadRequest marks malformed client input.
var errBadRequest = errors.New("bad request")

// ErrorResponse is returned when an error occurs.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// writeError maps err onto a status code. Engine rejections are returned
// with the engine's message unchanged so the operator sees why.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()

	var rej *engineclient.RejectionError
	if errors.As(err, &rej) && rej.Message != "" {
		msg = rej.Message
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Debug("request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func statusFor(err error) int {
	switch {
	case engineclient.IsRejection(err):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, engineclient.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest), errors.Is(err, dashboard.ErrMissingUser):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
