package progress

import (
	"context"

	"github.com/barkatlearn/learn/internal/models"
)

// Remote is the interface that wraps the backend calls the manager depends on.
//
// Implementations decide the offline policy: without a backend or without a token, writes are expected to succeed
// as no-ops and reads to return nil data or bundled cards.
type Remote interface {
	// Method FetchFeed returns one page of feed cards.
	//
	// "token" is the bearer token, empty for guests.
	//
	// If the backend cannot be reached or answers with a non-2xx status, the error will be returned together with "nil" value.
	FetchFeed(ctx context.Context, token string, limit, offset int) (*models.FeedPage, error)
	// Method FetchProgress returns the server progress snapshot, or nil when there is nothing to merge.
	FetchProgress(ctx context.Context, token string) (*models.ProgressSnapshot, error)
	// Method PatchProgress sends a partial progress update.
	PatchProgress(ctx context.Context, token string, patch *models.ProgressPatch) error
	// Method MarkLearned records a learned card on the server and returns the updated snapshot.
	//
	// "day" is the device's calendar day of the learning event; the server stamps it instead of its own day.
	MarkLearned(ctx context.Context, token, cardID string, day models.Date) (*models.ProgressSnapshot, error)
	// Method AddBookmark bookmarks a card and returns the server's saved ids.
	AddBookmark(ctx context.Context, token, cardID string) ([]string, error)
	// Method RemoveBookmark removes a bookmark and returns the server's saved ids.
	RemoveBookmark(ctx context.Context, token, cardID string) ([]string, error)
	// Method FetchCategoryStats returns per-category totals and the overview.
	//
	// A nil result with a nil error means there is no server data (offline mode).
	FetchCategoryStats(ctx context.Context, token string) (*models.CategoryStatsResponse, error)
	// Method CurrentUser returns the signed-in user's profile, or nil when there is none.
	CurrentUser(ctx context.Context, token string) (*models.UserProfile, error)
	// Method UpdateCurrentUser applies a partial profile update.
	UpdateCurrentUser(ctx context.Context, token string, req *models.UpdateUserRequest) (*models.UserProfile, error)
	// Method DeleteAccount deletes the signed-in user's account.
	DeleteAccount(ctx context.Context, token string) error
	// Method Signup creates an account and returns its session token.
	Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error)
	// Method Login exchanges credentials for a session token.
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	// Method LoginWithApple exchanges an Apple identity token for a session token.
	//
	// In offline mode the returned token is empty and the login is local only.
	LoginWithApple(ctx context.Context, identityToken, email string) (*models.AuthResponse, error)
}
