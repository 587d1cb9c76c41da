// Package utils provides JSON response helpers shared by the HTTP handlers.
package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	apierrors "github.com/maruel/docdb/internal/errors"
)

// SuccessResponse wraps a successful API response
type SuccessResponse struct {
	Data any `json:"data"`
}

// ErrorResponse wraps an error API response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RespondJSON sends a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Status is already written to the client at this point.
		_ = err
	}
}

// RespondSuccess sends a successful JSON response.
func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, SuccessResponse{Data: data})
}

// RespondError sends an error JSON response. APIErrors keep their status
// code and error code; anything else becomes a 500 INTERNAL_ERROR without
// leaking the underlying message.
func RespondError(w http.ResponseWriter, err error) {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		RespondJSON(w, apiErr.StatusCode(), ErrorResponse{Error: apiErr.Error(), Code: string(apiErr.Code())})
		return
	}
	RespondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Code: string(apierrors.ErrInternal)})
}
