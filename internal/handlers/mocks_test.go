package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/barkatlearn/learn/internal/models"
	"github.com/barkatlearn/learn/libs/auth/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	testToken  = "valid-token"
	testUserID = "user_1"
)

// stubValidator accepts testToken only
type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (string, error) {
	if token == testToken {
		return testUserID, nil
	}
	return "", errors.New("invalid token")
}

// setupRouter mounts the handlers under /api the way cmd/api does
func setupRouter(cards CardsService, progress ProgressService, users UserService) *chi.Mux {
	logger := zap.NewNop()
	auth := middleware.AuthMiddleware(stubValidator{})
	optional := middleware.OptionalAuthMiddleware(stubValidator{})

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		NewHealthHandler(logger).RegisterRoutes(r)
		if cards != nil {
			NewCardsHandler(cards, logger).RegisterRoutes(r, auth, optional)
		}
		if progress != nil {
			NewProgressHandler(progress, logger).RegisterRoutes(r, auth)
		}
		if users != nil {
			NewUserHandler(users, logger).RegisterRoutes(r, auth)
		}
	})
	return r
}

// mockCardsService is a mock implementation of CardsService
type mockCardsService struct {
	cards    []models.APICard
	page     *models.FeedPage
	bookmark *models.BookmarksResponse
	err      error

	gotUserID   string
	gotCategory string
	gotCardID   string
	gotLimit    int
	gotOffset   int
}

func (m *mockCardsService) All(ctx context.Context) []models.APICard {
	return m.cards
}

func (m *mockCardsService) record(userID string, limit, offset int) (*models.FeedPage, error) {
	m.gotUserID = userID
	m.gotLimit = limit
	m.gotOffset = offset
	if m.err != nil {
		return nil, m.err
	}
	return m.page, nil
}

func (m *mockCardsService) Feed(ctx context.Context, userID string, limit, offset int) (*models.FeedPage, error) {
	return m.record(userID, limit, offset)
}

func (m *mockCardsService) ByCategory(ctx context.Context, userID, category string, limit, offset int) (*models.FeedPage, error) {
	m.gotCategory = category
	return m.record(userID, limit, offset)
}

func (m *mockCardsService) Completed(ctx context.Context, userID, category string, limit, offset int) (*models.FeedPage, error) {
	m.gotCategory = category
	return m.record(userID, limit, offset)
}

func (m *mockCardsService) Bookmarks(ctx context.Context, userID string, limit, offset int) (*models.FeedPage, error) {
	return m.record(userID, limit, offset)
}

func (m *mockCardsService) AddBookmark(ctx context.Context, userID, cardID string) (*models.BookmarksResponse, error) {
	m.gotUserID = userID
	m.gotCardID = cardID
	if m.err != nil {
		return nil, m.err
	}
	return m.bookmark, nil
}

func (m *mockCardsService) RemoveBookmark(ctx context.Context, userID, cardID string) (*models.BookmarksResponse, error) {
	return m.AddBookmark(ctx, userID, cardID)
}

// mockProgressService is a mock implementation of ProgressService
type mockProgressService struct {
	progress *models.ProgressSnapshot
	stats    *models.CategoryStatsResponse
	err      error

	gotPatch  *models.ProgressPatch
	gotCardID string
	gotDay    *models.Date
	replaced  bool
}

func (m *mockProgressService) GetProgress(ctx context.Context, userID string) (*models.ProgressSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.progress, nil
}

func (m *mockProgressService) UpdateProgress(ctx context.Context, userID string, patch *models.ProgressPatch) (*models.ProgressSnapshot, error) {
	m.gotPatch = patch
	if m.err != nil {
		return nil, m.err
	}
	return m.progress, nil
}

func (m *mockProgressService) ReplaceProgress(ctx context.Context, userID string, doc *models.ProgressPatch) (*models.ProgressSnapshot, error) {
	m.replaced = true
	return m.UpdateProgress(ctx, userID, doc)
}

func (m *mockProgressService) MarkLearned(ctx context.Context, userID, cardID string, clientDay *models.Date) (*models.ProgressSnapshot, error) {
	m.gotCardID = cardID
	m.gotDay = clientDay
	if m.err != nil {
		return nil, m.err
	}
	return m.progress, nil
}

func (m *mockProgressService) CategoryStats(ctx context.Context, userID string) (*models.CategoryStatsResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.stats, nil
}

// mockUserService is a mock implementation of UserService
type mockUserService struct {
	auth    *models.AuthResponse
	profile *models.UserProfile
	err     error

	gotSignup *models.SignupRequest
	gotUpdate *models.UpdateUserRequest
	deleted   string
}

func (m *mockUserService) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error) {
	m.gotSignup = req
	if m.err != nil {
		return nil, m.err
	}
	return m.auth, nil
}

func (m *mockUserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.auth, nil
}

func (m *mockUserService) AppleLogin(ctx context.Context, req *models.AppleLoginRequest) (*models.AuthResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.auth, nil
}

func (m *mockUserService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.profile, nil
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, req *models.UpdateUserRequest) (*models.UserProfile, error) {
	m.gotUpdate = req
	if m.err != nil {
		return nil, m.err
	}
	return m.profile, nil
}

func (m *mockUserService) DeleteAccount(ctx context.Context, userID string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = userID
	return nil
}

// newRequest builds a request with an optional JSON body and bearer token
func newRequest(method, target, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}
