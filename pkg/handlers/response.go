package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tabstat/tabstat-engine/pkg/apperrors"
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

// writeEngineError maps engine errors onto HTTP status codes: validation
// errors are caller-correctable (400/404), everything else is internal. The
// engine never hides resource errors, so anything unrecognized propagates as
// a 500.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrDatasetNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "dataset_not_found", err.Error())
	case errors.Is(err, apperrors.ErrColumnNotFound):
		_ = ErrorResponse(w, http.StatusBadRequest, "column_not_found", err.Error())
	case errors.Is(err, apperrors.ErrInsufficientColumns):
		_ = ErrorResponse(w, http.StatusBadRequest, "insufficient_columns", err.Error())
	case errors.Is(err, apperrors.ErrNoSharedColumns):
		_ = ErrorResponse(w, http.StatusBadRequest, "no_shared_columns", err.Error())
	case errors.Is(err, apperrors.ErrUnsupportedSource):
		_ = ErrorResponse(w, http.StatusBadRequest, "unsupported_source", err.Error())
	case errors.Is(err, apperrors.ErrInvalidOperator):
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_operator", err.Error())
	case errors.Is(err, apperrors.ErrEmptyDatasetID):
		_ = ErrorResponse(w, http.StatusBadRequest, "empty_dataset_id", err.Error())
	default:
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
