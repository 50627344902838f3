package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/matrixise/guild-dashboard/internal/allowance"
	"github.com/matrixise/guild-dashboard/internal/units"
)

type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

// mapSubmitError maps an allowance submission error to a status and code.
func mapSubmitError(err error) (int, string) {
	switch {
	case errors.Is(err, units.ErrParse), errors.Is(err, units.ErrConversionOverflow):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR"
	case errors.Is(err, allowance.ErrSubmissionInFlight),
		errors.Is(err, allowance.ErrAlreadyConfirmed),
		errors.Is(err, allowance.ErrAwaitingConfirmation):
		return http.StatusConflict, "CONFLICT"
	default:
		return http.StatusBadGateway, "AUTHORIZATION_REJECTED"
	}
}
