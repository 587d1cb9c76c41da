package handlers

import (
	"net/http"

	"github.com/maruel/docdb/internal/utils"
)

// HealthHandler handles health check requests.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status string `json:"status"`
}

// Health returns the health status of the server.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
