package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse represents a standardized error response format.
type ErrorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// WriteError writes a standardized JSON error response to the HTTP response writer.
// It sets the appropriate Content-Type header, status code, and encodes the error response.
func WriteError(w http.ResponseWriter, statusCode int, message string, errors []string, log *slog.Logger) {
	response := ErrorResponse{
		Message: message,
		Errors:  errors,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		// Status code is already written; only log the failure.
		if log != nil {
			log.Error("failed to encode error response", "error", err)
		}
	}
}

// WriteValidationError writes a 400 response with the standard validation
// message used across handlers.
func WriteValidationError(w http.ResponseWriter, details ...string) {
	WriteError(w, http.StatusBadRequest, "Error de Validación", details, nil)
}
