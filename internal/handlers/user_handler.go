package handlers

import (
	"context"
	"net/http"

	"github.com/barkatlearn/learn/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UserService is the interface that wraps methods for account business logic.
type UserService interface {
	// Method Signup validates the request, creates an account and returns a session token.
	//
	// If the email is already registered, repositories.ErrEmailTaken will be returned together with "nil" value.
	// Invalid input yields a *services.ValidationError.
	Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error)
	// Method Login checks an email and password and returns a session token.
	//
	// If the credentials do not match an account, services.ErrInvalidCredentials will be returned together with "nil" value.
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	// Method AppleLogin signs in with a Sign in with Apple identity token, creating the account on first use.
	//
	// If the token fails verification, services.ErrInvalidIdentityToken will be returned together with "nil" value.
	AppleLogin(ctx context.Context, req *models.AppleLoginRequest) (*models.AuthResponse, error)
	// Method GetProfile retrieves the public profile of a user.
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	// Method UpdateProfile applies the non-nil fields of "req" to the user's profile.
	UpdateProfile(ctx context.Context, userID string, req *models.UpdateUserRequest) (*models.UserProfile, error)
	// Method DeleteAccount removes the user and all of its progress.
	DeleteAccount(ctx context.Context, userID string) error
}

// UserHandler handles account related HTTP requests
type UserHandler struct {
	baseHandler
	service UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(svc UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		baseHandler: newBaseHandler(logger),
		service:     svc,
	}
}

// RegisterRoutes registers all user handler routes
func (h *UserHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.Post("/apple-login", h.AppleLogin)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/me", h.GetProfile)
			r.Patch("/me", h.UpdateProfile)
			r.Delete("/me", h.DeleteAccount)
		})
	})
}

// Signup handles POST /api/users/signup
// @Summary Create an account
// @Tags users
// @Accept json
// @Produce json
// @Param request body models.SignupRequest true "Email, password and optional name and preferences"
// @Success 201 {object} models.AuthResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/users/signup [post]
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.service.Signup(r.Context(), &req)
	if err != nil {
		h.respondServiceError(w, r, "sign up", err)
		return
	}
	h.RespondJSON(w, http.StatusCreated, resp)
}

// Login handles POST /api/users/login
// @Summary Log in with email and password
// @Tags users
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Credentials"
// @Success 200 {object} models.AuthResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/users/login [post]
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		h.respondServiceError(w, r, "log in", err)
		return
	}
	h.RespondJSON(w, http.StatusOK, resp)
}

// AppleLogin handles POST /api/users/apple-login
// @Summary Sign in with Apple
// @Tags users
// @Accept json
// @Produce json
// @Param request body models.AppleLoginRequest true "Identity token and, on first sign in, the email"
// @Success 200 {object} models.AuthResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 501 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/users/apple-login [post]
func (h *UserHandler) AppleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.AppleLoginRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.service.AppleLogin(r.Context(), &req)
	if err != nil {
		h.respondServiceError(w, r, "sign in with apple", err)
		return
	}
	h.RespondJSON(w, http.StatusOK, resp)
}

// GetProfile handles GET /api/users/me
// @Summary Get the current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserProfile
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/users/me [get]
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, "get profile", err)
		return
	}
	h.RespondJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PATCH /api/users/me
// @Summary Update the current user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdateUserRequest true "Fields to change"
// @Success 200 {object} models.UserProfile
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/users/me [patch]
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		h.respondServiceError(w, r, "update profile", err)
		return
	}
	h.RespondJSON(w, http.StatusOK, profile)
}

// DeleteAccount handles DELETE /api/users/me
// @Summary Delete the current user
// @Description Removes the account and all of its progress
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/users/me [delete]
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAccount(r.Context(), userID); err != nil {
		h.respondServiceError(w, r, "delete account", err)
		return
	}
	h.RespondMessage(w, http.StatusOK, "Account deleted")
}
