package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"oneinch-swapper/pkg/swapper"
)

// statusFor maps adapter errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, swapper.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, swapper.ErrPaused),
		errors.Is(err, swapper.ErrAlreadyPaused),
		errors.Is(err, swapper.ErrNotPaused):
		return http.StatusConflict
	case errors.Is(err, swapper.ErrMalformedInstruction):
		return http.StatusBadRequest
	case errors.Is(err, swapper.ErrTransferFailed),
		errors.Is(err, swapper.ErrSlippageExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, swapper.ErrRouterExecution):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func writeSwapperError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{
		"error":  err.Error(),
		"reason": swapper.Reason(err),
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}
