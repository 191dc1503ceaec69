// Package services implements the backend business logic behind the /api routes
package services

import (
	"context"
	"errors"

	"github.com/barkatlearn/learn/internal/models"
)

var (
	// ErrInvalidCredentials is returned when the email or password does not match an account
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrCardNotFound is returned when a card id is not in the catalog
	ErrCardNotFound = errors.New("card not found")
	// ErrValidation is matched by every *ValidationError
	ErrValidation = errors.New("validation failed")
)

// ValidationError reports a request that failed input validation. Message is safe to return to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is makes errors.Is(err, ErrValidation) true for every ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationError(message string) error {
	return &ValidationError{Message: message}
}

// UserRepository is the interface that wraps methods for user data access
type UserRepository interface {
	// Method Create inserts a new user and assigns its ID.
	//
	// "user" parameter is stored with its email lower cased.
	//
	// If the email is already registered, repositories.ErrEmailTaken will be returned.
	Create(ctx context.Context, user *models.User) error
	// Method GetByEmail retrieves a user by email, ignoring case.
	//
	// If user with such email does not exist, repositories.ErrUserNotFound will be returned together with "nil" value.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Method GetByID retrieves a user by ID.
	//
	// If user with such ID does not exist, repositories.ErrUserNotFound will be returned together with "nil" value.
	GetByID(ctx context.Context, userID string) (*models.User, error)
	// Method GetByAppleSubject retrieves the user linked to a Sign in with Apple subject.
	//
	// If no user is linked, repositories.ErrUserNotFound will be returned together with "nil" value.
	GetByAppleSubject(ctx context.Context, subject string) (*models.User, error)
	// Method Update stores the name, age, language, preferences and Apple link of an existing user.
	//
	// If user does not exist, repositories.ErrUserNotFound will be returned.
	Update(ctx context.Context, user *models.User) error
	// Method Delete removes a user and its progress.
	//
	// If user does not exist, repositories.ErrUserNotFound will be returned.
	Delete(ctx context.Context, userID string) error
}

// ProgressRepository is the interface that wraps methods for progress data access
type ProgressRepository interface {
	// Method Get retrieves the progress of a user.
	//
	// If the user has no stored progress, repositories.ErrProgressNotFound will be returned together with "nil" value.
	Get(ctx context.Context, userID string) (*models.ProgressSnapshot, error)
	// Method Update applies "fn" to the user's progress and stores the result atomically.
	//
	// A user without stored progress starts from models.NewProgress(0).
	// If "fn" returns an error, nothing is stored and that error will be returned together with "nil" value.
	Update(ctx context.Context, userID string, fn func(p *models.ProgressSnapshot) error) (*models.ProgressSnapshot, error)
}
