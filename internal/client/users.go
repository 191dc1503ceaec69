package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/barkatlearn/learn/internal/models"
)

// ErrOffline is returned by account operations that need a backend
var ErrOffline = errors.New("no backend configured")

// CurrentUser calls GET /api/users/me. It returns nil without a backend or a token.
func (c *Client) CurrentUser(ctx context.Context, token string) (*models.UserProfile, error) {
	if c.Offline() || token == "" {
		return nil, nil
	}

	var user models.UserProfile
	if err := c.do(ctx, http.MethodGet, "/api/users/me", token, nil, &user); err != nil {
		return nil, fmt.Errorf("failed to fetch current user: %w", err)
	}
	return &user, nil
}

// UpdateCurrentUser calls PATCH /api/users/me. It returns nil without a backend or a token.
func (c *Client) UpdateCurrentUser(ctx context.Context, token string, req *models.UpdateUserRequest) (*models.UserProfile, error) {
	if c.Offline() || token == "" {
		return nil, nil
	}

	var user models.UserProfile
	if err := c.do(ctx, http.MethodPatch, "/api/users/me", token, req, &user); err != nil {
		return nil, fmt.Errorf("failed to update current user: %w", err)
	}
	return &user, nil
}

// DeleteAccount calls DELETE /api/users/me. Without a backend or a token the deletion is local only.
func (c *Client) DeleteAccount(ctx context.Context, token string) error {
	if c.Offline() || token == "" {
		return nil
	}

	if err := c.do(ctx, http.MethodDelete, "/api/users/me", token, nil, nil); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// Signup calls POST /api/users/signup
func (c *Client) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error) {
	if c.Offline() {
		return nil, ErrOffline
	}

	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/users/signup", "", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to sign up: %w", err)
	}
	return &resp, nil
}

// Login calls POST /api/users/login
func (c *Client) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if c.Offline() {
		return nil, ErrOffline
	}

	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/users/login", "", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to log in: %w", err)
	}
	return &resp, nil
}

// LoginWithApple calls POST /api/users/apple-login.
//
// Without a backend the login is local only: the response has an empty token and echoes email.
// The returned user email falls back to email when the server omits it.
func (c *Client) LoginWithApple(ctx context.Context, identityToken, email string) (*models.AuthResponse, error) {
	if c.Offline() {
		return &models.AuthResponse{User: &models.UserProfile{Email: email}}, nil
	}

	var resp models.AuthResponse
	req := models.AppleLoginRequest{IdentityToken: identityToken, Email: email}
	if err := c.do(ctx, http.MethodPost, "/api/users/apple-login", "", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to log in with apple: %w", err)
	}
	if resp.User == nil {
		resp.User = &models.UserProfile{}
	}
	if resp.User.Email == "" {
		resp.User.Email = email
	}
	return &resp, nil
}
