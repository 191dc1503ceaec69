package services

import (
	"context"

	"github.com/barkatlearn/learn/internal/models"
	"github.com/barkatlearn/learn/internal/repositories"
)

// mockUserRepository is a mock implementation of UserRepository
type mockUserRepository struct {
	user      *models.User
	createErr error
	getErr    error
	updateErr error
	deleteErr error

	created   *models.User
	updated   *models.User
	deletedID string
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = "user_1"
	m.created = user
	return nil
}

func (m *mockUserRepository) lookup() (*models.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.user == nil {
		return nil, repositories.ErrUserNotFound
	}
	user := *m.user
	return &user, nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.lookup()
}

func (m *mockUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	return m.lookup()
}

func (m *mockUserRepository) GetByAppleSubject(ctx context.Context, subject string) (*models.User, error) {
	if m.user == nil || subject == "" || m.user.AppleSubject != subject {
		return nil, repositories.ErrUserNotFound
	}
	return m.lookup()
}

func (m *mockUserRepository) Update(ctx context.Context, user *models.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = user
	return nil
}

func (m *mockUserRepository) Delete(ctx context.Context, userID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedID = userID
	return nil
}

// mockProgressRepository is a mock implementation of ProgressRepository holding one user's progress
type mockProgressRepository struct {
	progress  *models.ProgressSnapshot
	getErr    error
	updateErr error
	updates   int
}

func (m *mockProgressRepository) Get(ctx context.Context, userID string) (*models.ProgressSnapshot, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.progress == nil {
		return nil, repositories.ErrProgressNotFound
	}
	return m.progress.Clone(), nil
}

func (m *mockProgressRepository) Update(ctx context.Context, userID string, fn func(p *models.ProgressSnapshot) error) (*models.ProgressSnapshot, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	p := models.NewProgress(0)
	if m.progress != nil {
		p = m.progress.Clone()
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	m.progress = p.Clone()
	m.updates++
	return p, nil
}

// mockVerifier is a mock implementation of IdentityVerifier
type mockVerifier struct {
	identity *AppleIdentity
	err      error
}

func (m *mockVerifier) Verify(ctx context.Context, identityToken string) (*AppleIdentity, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.identity, nil
}
