package handlers

import (
	"net/http"

	"github.com/barkatlearn/learn/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ServiceName is reported by the health endpoint
const ServiceName = "barkat-learn-api"

// HealthHandler answers liveness checks
type HealthHandler struct {
	baseHandler
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	return &HealthHandler{baseHandler: newBaseHandler(logger)}
}

// RegisterRoutes registers the health route
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
}

// Health handles GET /api/health
// @Summary Health check
// @Description Reports that the API is running
// @Tags health
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /api/health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.RespondJSON(w, http.StatusOK, models.HealthResponse{Status: "ok", Service: ServiceName})
}
