package handlers

import (
	"context"
	"net/http"

	"github.com/barkatlearn/learn/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProgressService is the interface that wraps methods for progress business logic.
type ProgressService interface {
	// Method GetProgress retrieves the user's progress document.
	//
	// A user without stored progress gets an empty document.
	GetProgress(ctx context.Context, userID string) (*models.ProgressSnapshot, error)
	// Method UpdateProgress replaces the fields present in "patch" and returns the stored document.
	UpdateProgress(ctx context.Context, userID string, patch *models.ProgressPatch) (*models.ProgressSnapshot, error)
	// Method ReplaceProgress stores "doc" as the whole progress document. Absent fields are reset.
	ReplaceProgress(ctx context.Context, userID string, doc *models.ProgressPatch) (*models.ProgressSnapshot, error)
	// Method MarkLearned records a learned card and returns the stored document.
	//
	// If the card is not in the catalog, services.ErrCardNotFound will be returned together with "nil" value.
	MarkLearned(ctx context.Context, userID, cardID string, clientDay *models.Date) (*models.ProgressSnapshot, error)
	// Method CategoryStats returns per-category totals and completions plus an overview.
	CategoryStats(ctx context.Context, userID string) (*models.CategoryStatsResponse, error)
}

// ProgressHandler handles progress related HTTP requests
type ProgressHandler struct {
	baseHandler
	service ProgressService
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(svc ProgressService, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		baseHandler: newBaseHandler(logger),
		service:     svc,
	}
}

// RegisterRoutes registers all progress handler routes. Every route requires authentication.
func (h *ProgressHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/progress", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetProgress)
		r.Patch("/", h.UpdateProgress)
		r.Put("/", h.ReplaceProgress)
		r.Post("/learned", h.MarkLearned)
		r.Get("/user-progress-stats", h.CategoryStats)
	})
}

// GetProgress handles GET /api/progress
// @Summary Get progress
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.ProgressSnapshot
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/progress [get]
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetProgress(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, "get progress", err)
		return
	}
	h.RespondJSON(w, http.StatusOK, p)
}

// UpdateProgress handles PATCH /api/progress
// @Summary Update progress
// @Description Replaces the fields present in the body
// @Tags progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ProgressPatch true "Fields to replace"
// @Success 200 {object} models.ProgressSnapshot
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/progress [patch]
func (h *ProgressHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	h.writeProgress(w, r, "update progress", h.service.UpdateProgress)
}

// ReplaceProgress handles PUT /api/progress
// @Summary Replace progress
// @Description Stores the body as the whole progress document
// @Tags progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ProgressPatch true "Progress document"
// @Success 200 {object} models.ProgressSnapshot
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/progress [put]
func (h *ProgressHandler) ReplaceProgress(w http.ResponseWriter, r *http.Request) {
	h.writeProgress(w, r, "replace progress", h.service.ReplaceProgress)
}

func (h *ProgressHandler) writeProgress(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	write func(ctx context.Context, userID string, patch *models.ProgressPatch) (*models.ProgressSnapshot, error),
) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	var patch models.ProgressPatch
	if err := h.DecodeJSON(r, &patch); err != nil {
		h.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := write(r.Context(), userID, &patch)
	if err != nil {
		h.respondServiceError(w, r, action, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, p)
}

// MarkLearned handles POST /api/progress/learned
// @Summary Mark a card learned
// @Description Records a learned card. Counting and the streak advance only the first time.
// @Tags progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CardIDRequest true "Learned card"
// @Success 200 {object} models.ProgressSnapshot
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/progress/learned [post]
func (h *ProgressHandler) MarkLearned(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	var req models.CardIDRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "cardId is required")
		return
	}

	p, err := h.service.MarkLearned(r.Context(), userID, req.CardID, req.Date)
	if err != nil {
		h.respondServiceError(w, r, "mark card learned", err)
		return
	}
	h.RespondJSON(w, http.StatusOK, p)
}

// CategoryStats handles GET /api/progress/user-progress-stats
// @Summary Progress statistics
// @Description Per-category totals and completions plus the streak, consumed and topic overview
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.CategoryStatsResponse
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/progress/user-progress-stats [get]
func (h *ProgressHandler) CategoryStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	stats, err := h.service.CategoryStats(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, "get progress stats", err)
		return
	}
	h.RespondJSON(w, http.StatusOK, stats)
}
