// Package handlers implements the REST boundary of the reporting API. It
// validates request input, delegates to the reporting service, and serializes
// typed results as JSON or CSV.
package handlers

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/clusterdash/reporting-engine/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// writeServiceError maps the error taxonomy onto response status classes:
// invalid input to 400, missing data to 404, schema incompatibility and store
// failures to 500.
func writeServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var (
		status int
		code   string
	)
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		status, code = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, apperrors.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrSchemaIncompatible):
		status, code = http.StatusInternalServerError, "schema_incompatible"
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		status, code = http.StatusInternalServerError, "store_error"
	default:
		status, code = http.StatusInternalServerError, "internal_error"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("code", code), zap.Error(err))
	}

	if writeErr := ErrorResponse(w, status, code, err.Error()); writeErr != nil {
		logger.Error("Failed to write error response", zap.Error(writeErr))
	}
}
