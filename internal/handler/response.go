package handler

// Every error response has the same shape:
//
//	{"error": "not_found", "message": "Server could not find a requested post"}
//
// with "field" added when a single request field is at fault. Messages are
// fixed strings; database and provider errors are logged, never sent.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/blogpost-api/internal/apperror"
	"github.com/sakif/blogpost-api/internal/middleware"
)

const msgBadBody = "Request body must be a JSON object"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable kind, e.g. "not_found"
	Message string `json:"message"`         // safe to show to a user
	Field   string `json:"field,omitempty"` // request field at fault, if any
}

// writeJSON sets the headers and status before encoding; once the body
// starts, headers can no longer change.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error onto a status code.
//
//	ErrValidation, ErrRejected → 400
//	ErrNotFound                → 404
//	ErrConflict                → 409
//	anything else              → 500 with fallback as the message
//
// errors.As walks the %w chain, so wrapped AppErrors are found too.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		kind := "internal_error"
		message := fallback

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status, kind, message = http.StatusBadRequest, "validation_error", appErr.Message
		case errors.Is(err, apperror.ErrRejected):
			status, kind, message = http.StatusBadRequest, "request_rejected", appErr.Message
		case errors.Is(err, apperror.ErrNotFound):
			status, kind, message = http.StatusNotFound, "not_found", appErr.Message
		case errors.Is(err, apperror.ErrConflict):
			status, kind, message = http.StatusConflict, "conflict", appErr.Message
		}

		if status == http.StatusInternalServerError {
			logger.Error(fallback, slog.String("error", err.Error()))
		}
		writeJSON(w, status, ErrorResponse{
			Error:   kind,
			Message: message,
			Field:   appErr.Field,
		})
		return
	}

	logger.Error(fallback, slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: fallback,
	})
}

// decodeJSON reads a JSON object body of at most middleware.MaxBodyBytes
// into dst and answers 400 itself when it can't.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, middleware.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error:   "request_too_large",
				Message: "Request body is too large",
			})
			return false
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: msgBadBody,
		})
		return false
	}
	return true
}
