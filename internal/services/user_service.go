package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/barkatlearn/learn/internal/models"
	"github.com/barkatlearn/learn/internal/repositories"
	"github.com/barkatlearn/learn/libs/auth/service"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 6

// maxAge bounds the age a user can set on the profile
const maxAge = 120

// emailRegex validates email format
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// IdentityVerifier is the interface that wraps verification of third party identity tokens.
type IdentityVerifier interface {
	// Method Verify checks an identity token and returns the identity it carries.
	//
	// If the token is invalid or the verifier is not configured, the error will be returned together with "nil" value.
	Verify(ctx context.Context, identityToken string) (*AppleIdentity, error)
}

// userService implements account and profile operations
type userService struct {
	userRepo       UserRepository
	progressRepo   ProgressRepository
	tokenGenerator *service.TokenGenerator
	apple          IdentityVerifier
	logger         *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo UserRepository,
	progressRepo ProgressRepository,
	tokenGenerator *service.TokenGenerator,
	apple IdentityVerifier,
	logger *zap.Logger,
) *userService {
	return &userService{
		userRepo:       userRepo,
		progressRepo:   progressRepo,
		tokenGenerator: tokenGenerator,
		apple:          apple,
		logger:         logger,
	}
}

// Signup creates an account with an email and password and returns a session token
func (s *userService) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, validationError("Email and password are required")
	}
	if !emailRegex.MatchString(email) {
		return nil, validationError("Invalid email format")
	}
	if len(req.Password) < MinPasswordLength {
		return nil, validationError(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultName(email)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(passwordHash),
		Name:         name,
		Preferences:  normalizePreferences(req.Preferences),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.initProgress(ctx, user)

	return s.authResponse(user, "User created")
}

// Login checks an email and password and returns a session token
func (s *userService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, validationError("Email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	// Accounts created through Apple have no password
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.authResponse(user, "")
}

// AppleLogin signs in with a Sign in with Apple identity token.
//
// The token subject identifies the account. On the first sign in the account is matched by email or created;
// an email is then required, either in the token or in the request.
func (s *userService) AppleLogin(ctx context.Context, req *models.AppleLoginRequest) (*models.AuthResponse, error) {
	if strings.TrimSpace(req.IdentityToken) == "" {
		return nil, validationError("identityToken is required")
	}

	identity, err := s.apple.Verify(ctx, req.IdentityToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByAppleSubject(ctx, identity.Subject)
	if err == nil {
		return s.authResponse(user, "")
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		email = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if email == "" {
		return nil, validationError("Email is required on the first Apple sign in")
	}

	user, err = s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		user.AppleSubject = identity.Subject
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, err
		}
	case errors.Is(err, repositories.ErrUserNotFound):
		user = &models.User{
			Email:        email,
			AppleSubject: identity.Subject,
			Name:         defaultName(email),
			Preferences:  []string{},
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, err
		}
		s.initProgress(ctx, user)
	default:
		return nil, err
	}

	return s.authResponse(user, "")
}

// GetProfile returns the public profile of a user
func (s *userService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

// UpdateProfile applies the non-nil fields of req to the user's profile.
//
// Changing preferences also updates topicsFollowed in the user's progress.
func (s *userService) UpdateProfile(ctx context.Context, userID string, req *models.UpdateUserRequest) (*models.UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Age != nil {
		if *req.Age <= 0 || *req.Age > maxAge {
			return nil, validationError(fmt.Sprintf("Age must be between 1 and %d", maxAge))
		}
		age := *req.Age
		user.Age = &age
	}
	if req.Language != nil {
		language, ok := models.ParseLanguage(*req.Language)
		if !ok {
			return nil, validationError(fmt.Sprintf("Unsupported language: %s", *req.Language))
		}
		user.Language = language.Slug()
	}
	if req.Preferences != nil {
		user.Preferences = normalizePreferences(req.Preferences)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if req.Preferences != nil {
		topics := len(user.Preferences)
		_, err := s.progressRepo.Update(ctx, userID, func(p *models.ProgressSnapshot) error {
			p.Stats.TopicsFollowed = topics
			return nil
		})
		if err != nil {
			s.logger.Warn("failed to update followed topics", zap.String("user_id", userID), zap.Error(err))
		}
	}

	return user.Profile(), nil
}

// DeleteAccount removes the user and all of its progress
func (s *userService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("account deleted", zap.String("user_id", userID))
	return nil
}

// initProgress creates the progress document of a new user.
// We don`t want to fail the sign up when it cannot be written: progress is created lazily on the first update anyway.
func (s *userService) initProgress(ctx context.Context, user *models.User) {
	topics := len(user.Preferences)
	_, err := s.progressRepo.Update(ctx, user.ID, func(p *models.ProgressSnapshot) error {
		p.Stats.TopicsFollowed = topics
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to create user progress", zap.String("user_id", user.ID), zap.Error(err))
	}
}

func (s *userService) authResponse(user *models.User, message string) (*models.AuthResponse, error) {
	token, err := s.tokenGenerator.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &models.AuthResponse{
		Message: message,
		Token:   token,
		User:    user.Profile(),
	}, nil
}

// defaultName is the part of the email before "@"
func defaultName(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}

// normalizePreferences maps category names and aliases to backend slugs, dropping unknown values and duplicates
func normalizePreferences(values []string) []string {
	return models.CategorySlugs(models.ParseCategories(values))
}
