package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/barkatlearn/learn/internal/models"
	"github.com/barkatlearn/learn/libs/auth/middleware"
	"github.com/barkatlearn/learn/libs/handlers"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CardsService is the interface that wraps methods for card listings and bookmarks.
type CardsService interface {
	// Method All returns every card of the catalog.
	All(ctx context.Context) []models.APICard
	// Method Feed returns a page of the catalog.
	//
	// "userID" parameter may be empty for guests. For a signed in user bookmarked cards are flagged.
	Feed(ctx context.Context, userID string, limit, offset int) (*models.FeedPage, error)
	// Method ByCategory returns a page of the cards of one category.
	//
	// "category" parameter accepts a backend slug or a display name.
	// If the category is unknown, a validation error will be returned together with "nil" value.
	ByCategory(ctx context.Context, userID, category string, limit, offset int) (*models.FeedPage, error)
	// Method Completed returns a page of the cards of one category the user has learned or finished.
	//
	// Please reference ByCategory method for more information about parameters and error values.
	Completed(ctx context.Context, userID, category string, limit, offset int) (*models.FeedPage, error)
	// Method Bookmarks returns a page of the user's saved cards in the order they were saved.
	Bookmarks(ctx context.Context, userID string, limit, offset int) (*models.FeedPage, error)
	// Method AddBookmark saves a card for the user.
	//
	// If the card is not in the catalog, services.ErrCardNotFound will be returned together with "nil" value.
	AddBookmark(ctx context.Context, userID, cardID string) (*models.BookmarksResponse, error)
	// Method RemoveBookmark removes a card from the user's saved cards.
	RemoveBookmark(ctx context.Context, userID, cardID string) (*models.BookmarksResponse, error)
}

// CardsHandler handles card related HTTP requests
type CardsHandler struct {
	baseHandler
	service CardsService
}

// NewCardsHandler creates a new cards handler
func NewCardsHandler(svc CardsService, logger *zap.Logger) *CardsHandler {
	return &CardsHandler{
		baseHandler: newBaseHandler(logger),
		service:     svc,
	}
}

// RegisterRoutes registers all cards handler routes.
// Note: This assumes the router is already scoped to /api
func (h *CardsHandler) RegisterRoutes(r chi.Router, authMiddleware, optionalAuthMiddleware func(http.Handler) http.Handler) {
	r.Route("/cards", func(r chi.Router) {
		r.Get("/", h.All)

		r.Group(func(r chi.Router) {
			r.Use(optionalAuthMiddleware)
			r.Get("/feed", h.Feed)
			r.Get("/category/{category}", h.ByCategory)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/category/{category}/completed", h.Completed)
			r.Get("/bookmarks", h.Bookmarks)
			r.Post("/bookmarks", h.AddBookmark)
			r.Delete("/bookmarks", h.RemoveBookmark)
		})
	})
}

// All handles GET /api/cards
// @Summary List all cards
// @Description Returns every card of the catalog
// @Tags cards
// @Produce json
// @Success 200 {array} models.APICard
// @Router /api/cards [get]
func (h *CardsHandler) All(w http.ResponseWriter, r *http.Request) {
	h.RespondJSON(w, http.StatusOK, h.service.All(r.Context()))
}

// Feed handles GET /api/cards/feed
// @Summary Card feed
// @Description Returns a page of cards. With a bearer token the user's bookmarks are flagged.
// @Tags cards
// @Produce json
// @Param limit query int false "Page size, default 10, max 100"
// @Param offset query int false "Number of cards to skip"
// @Success 200 {object} models.FeedPage
// @Failure 500 {object} map[string]string
// @Router /api/cards/feed [get]
func (h *CardsHandler) Feed(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	limit, offset := parsePagination(r)

	page, err := h.service.Feed(r.Context(), userID, limit, offset)
	if err != nil {
		h.respondServiceError(w, r, "get feed", err)
		return
	}
	h.RespondJSON(w, http.StatusOK, page)
}

// ByCategory handles GET /api/cards/category/{category}
// @Summary Cards of a category
// @Description Returns a page of the cards of one category
// @Tags cards
// @Produce json
// @Param category path string true "Category slug: hadith, dua, stories, quran_surah or islamic_facts"
// @Param limit query int false "Page size, default 10, max 100"
// @Param offset query int false "Number of cards to skip"
// @Success 200 {object} models.FeedPage
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/cards/category/{category} [get]
func (h *CardsHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	limit, offset := parsePagination(r)

	page, err := h.service.ByCategory(r.Context(), userID, chi.URLParam(r, "category"), limit, offset)
	if err != nil {
		h.respondServiceError(w, r, "get category cards", err)
		return
	}
	h.RespondJSON(w, http.StatusOK, page)
}

// Completed handles GET /api/cards/category/{category}/completed
// @Summary Completed cards of a category
// @Description Returns a page of the cards of one category the user has learned or finished
// @Tags cards
// @Produce json
// @Security BearerAuth
// @Param category path string true "Category slug"
// @Param limit query int false "Page size, default 10, max 100"
// @Param offset query int false "Number of cards to skip"
// @Success 200 {object} models.FeedPage
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/cards/category/{category}/completed [get]
func (h *CardsHandler) Completed(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}
	limit, offset := parsePagination(r)

	page, err := h.service.Completed(r.Context(), userID, chi.URLParam(r, "category"), limit, offset)
	if err != nil {
		h.respondServiceError(w, r, "get completed cards", err)
		return
	}
	h.RespondJSON(w, http.StatusOK, page)
}

// Bookmarks handles GET /api/cards/bookmarks
// @Summary Saved cards
// @Description Returns a page of the user's saved cards
// @Tags cards
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size, default 10, max 100, 0 for all"
// @Param offset query int false "Number of cards to skip"
// @Success 200 {object} models.FeedPage
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/cards/bookmarks [get]
func (h *CardsHandler) Bookmarks(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}
	limit, offset := parsePagination(r)

	page, err := h.service.Bookmarks(r.Context(), userID, limit, offset)
	if err != nil {
		h.respondServiceError(w, r, "get bookmarks", err)
		return
	}
	h.RespondJSON(w, http.StatusOK, page)
}

// AddBookmark handles POST /api/cards/bookmarks
// @Summary Save a card
// @Tags cards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CardIDRequest true "Card to save"
// @Success 200 {object} models.BookmarksResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/cards/bookmarks [post]
func (h *CardsHandler) AddBookmark(w http.ResponseWriter, r *http.Request) {
	h.mutateBookmark(w, r, "add bookmark", h.service.AddBookmark)
}

// RemoveBookmark handles DELETE /api/cards/bookmarks
// @Summary Remove a saved card
// @Tags cards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CardIDRequest true "Card to remove"
// @Success 200 {object} models.BookmarksResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/cards/bookmarks [delete]
func (h *CardsHandler) RemoveBookmark(w http.ResponseWriter, r *http.Request) {
	h.mutateBookmark(w, r, "remove bookmark", h.service.RemoveBookmark)
}

func (h *CardsHandler) mutateBookmark(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	mutate func(ctx context.Context, userID, cardID string) (*models.BookmarksResponse, error),
) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	var req models.CardIDRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		if errors.Is(err, handlers.ErrEmptyBody) {
			h.RespondError(w, http.StatusBadRequest, "cardId is required")
			return
		}
		h.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := mutate(r.Context(), userID, req.CardID)
	if err != nil {
		h.respondServiceError(w, r, action, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, resp)
}
