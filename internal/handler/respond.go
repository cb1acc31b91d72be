package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/klaudly/klaudly/internal/ctxkeys"
	"github.com/klaudly/klaudly/internal/service"
	"github.com/klaudly/klaudly/internal/validation"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps service errors onto HTTP statuses. Missing entries and bad
// parents answer 401, the same as unauthorized requests.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, msg := http.StatusInternalServerError, fallback

	switch {
	case errors.Is(err, service.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, service.ErrNotFound):
		status, msg = http.StatusUnauthorized, "File not found"
	case errors.Is(err, service.ErrInvalidParent):
		status, msg = http.StatusUnauthorized, "Parent folder not found"
	case errors.Is(err, service.ErrInvalidInput):
		status, msg = http.StatusBadRequest, inputMessage(err)
	}

	attrs := []any{
		"error", err,
		"status", status,
		"path", r.URL.Path,
		"user_id", ctxkeys.Principal(r.Context()),
		"request_id", ctxkeys.RequestID(r.Context()),
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", attrs...)
	} else {
		slog.Warn("request rejected", attrs...)
	}

	writeJSON(w, status, errorResponse{Error: msg})
}

func inputMessage(err error) string {
	switch {
	case errors.Is(err, validation.ErrEmptyUpload):
		return "No file provided"
	case errors.Is(err, validation.ErrMissingUploadName):
		return "File name is required"
	case errors.Is(err, validation.ErrUnsupportedType):
		return "Only images and pdf are supported"
	case errors.Is(err, validation.ErrMissingExtension),
		errors.Is(err, validation.ErrBlockedExtension):
		return "File type not supported or allowed"
	case errors.Is(err, validation.ErrUploadTooLarge):
		return "File too large"
	case errors.Is(err, validation.ErrNameRequired):
		return "Name is required"
	case errors.Is(err, validation.ErrNameTooLong),
		errors.Is(err, validation.ErrNameInvalid):
		return "Invalid name"
	default:
		return "Invalid request"
	}
}
