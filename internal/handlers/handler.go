// Package handlers exposes the backend services over HTTP
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/barkatlearn/learn/internal/repositories"
	"github.com/barkatlearn/learn/internal/services"
	"github.com/barkatlearn/learn/libs/auth/middleware"
	"github.com/barkatlearn/learn/libs/handlers"
	"go.uber.org/zap"
)

const (
	// DefaultPageLimit is used when a request has no valid "limit" query parameter
	DefaultPageLimit = 10
	// MaxPageLimit caps the "limit" query parameter
	MaxPageLimit = 100
)

// baseHandler adds error mapping to the shared response helpers
type baseHandler struct {
	handlers.BaseHandler
}

func newBaseHandler(logger *zap.Logger) baseHandler {
	return baseHandler{BaseHandler: handlers.BaseHandler{Logger: logger}}
}

// respondServiceError maps a service error to a status code and a client facing message
func (h *baseHandler) respondServiceError(w http.ResponseWriter, r *http.Request, action string, err error) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		h.RespondError(w, http.StatusBadRequest, validationErr.Message)
	case errors.Is(err, repositories.ErrEmailTaken):
		h.RespondError(w, http.StatusConflict, "Email already registered")
	case errors.Is(err, services.ErrInvalidCredentials):
		h.RespondError(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, services.ErrInvalidIdentityToken):
		h.RespondError(w, http.StatusUnauthorized, "Invalid identity token")
	case errors.Is(err, services.ErrCardNotFound):
		h.RespondError(w, http.StatusNotFound, "Card not found")
	case errors.Is(err, repositories.ErrUserNotFound):
		h.RespondError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, services.ErrAppleNotConfigured):
		h.RespondError(w, http.StatusNotImplemented, "Apple sign in is not configured")
	default:
		h.Logger.Error("failed to "+action, zap.String("path", r.URL.Path), zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// requireUserID returns the authenticated user id, answering 401 when there is none
func (h *baseHandler) requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return "", false
	}
	return userID, true
}

// parsePagination reads "limit" and "offset" from the query string.
// A missing or invalid limit falls back to DefaultPageLimit; limit=0 returns every item.
func parsePagination(r *http.Request) (limit, offset int) {
	limit = DefaultPageLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l >= 0 {
			limit = min(l, MaxPageLimit)
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o > 0 {
			offset = o
		}
	}
	return limit, offset
}
