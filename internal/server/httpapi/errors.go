package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/packkeeper/internal/common"
	"github.com/dmitrijs2005/packkeeper/internal/logging"
)

// Error codes of the JSON error envelope.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeInternalError   = "INTERNAL_ERROR"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes {"error": {"code": ..., "message": ...}}.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

func validationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// writeServiceError maps a service error to the envelope. Unexpected errors
// are logged and reported without detail.
func writeServiceError(ctx context.Context, w http.ResponseWriter, logger logging.Logger, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, common.ErrorValidation),
		errors.Is(err, common.ErrDuplicateEntry),
		errors.Is(err, common.ErrInvalidManifest):
		validationError(w, err.Error())
	case errors.Is(err, common.ErrInvalidTransition),
		errors.Is(err, common.ErrArchiveTampered):
		WriteError(w, http.StatusConflict, CodeConflict, err.Error())
	default:
		logger.Error(ctx, "request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, CodeInternalError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
