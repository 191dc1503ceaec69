package repositories

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/barkatlearn/learn/internal/models"
)

// MemoryStore keeps users and progress in process memory. Data is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	progress map[string]*models.ProgressSnapshot
	nextID   int
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*models.User),
		progress: make(map[string]*models.ProgressSnapshot),
		now:      time.Now,
	}
}

// UserRepository returns the user repository backed by the store
func (s *MemoryStore) UserRepository() *memoryUserRepository {
	return &memoryUserRepository{store: s}
}

// ProgressRepository returns the progress repository backed by the store
func (s *MemoryStore) ProgressRepository() *memoryProgressRepository {
	return &memoryProgressRepository{store: s}
}

type memoryUserRepository struct {
	store *MemoryStore
}

// Create stores a new user and assigns it a "user_N" id
func (r *memoryUserRepository) Create(ctx context.Context, user *models.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if s.findByEmail(user.Email) != nil {
		return ErrEmailTaken
	}

	s.nextID++
	user.ID = fmt.Sprintf("user_%d", s.nextID)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now().UTC()
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

// GetByEmail retrieves a user by email, ignoring case
func (r *memoryUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	user := s.findByEmail(email)
	if user == nil {
		return nil, ErrUserNotFound
	}
	return cloneUser(user), nil
}

// GetByID retrieves a user by id
func (r *memoryUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(user), nil
}

// GetByAppleSubject retrieves the user linked to a Sign in with Apple subject
func (r *memoryUserRepository) GetByAppleSubject(ctx context.Context, subject string) (*models.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if subject != "" && user.AppleSubject == subject {
			return cloneUser(user), nil
		}
	}
	return nil, ErrUserNotFound
}

// Update replaces the stored profile fields of an existing user
func (r *memoryUserRepository) Update(ctx context.Context, user *models.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

// Delete removes a user together with its progress
func (r *memoryUserRepository) Delete(ctx context.Context, userID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return ErrUserNotFound
	}
	delete(s.users, userID)
	delete(s.progress, userID)
	return nil
}

// findByEmail must be called with s.mu held
func (s *MemoryStore) findByEmail(email string) *models.User {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range s.users {
		if user.Email == email {
			return user
		}
	}
	return nil
}

type memoryProgressRepository struct {
	store *MemoryStore
}

// Get retrieves the progress of a user
func (r *memoryProgressRepository) Get(ctx context.Context, userID string) (*models.ProgressSnapshot, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progress[userID]
	if !ok {
		return nil, ErrProgressNotFound
	}
	return p.Clone(), nil
}

// Update applies fn to the user's progress and stores the result atomically.
//
// A user without progress starts from models.NewProgress. When fn fails nothing is stored.
func (r *memoryProgressRepository) Update(ctx context.Context, userID string, fn func(p *models.ProgressSnapshot) error) (*models.ProgressSnapshot, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	p := models.NewProgress(0)
	if stored, ok := s.progress[userID]; ok {
		p = stored.Clone()
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	s.progress[userID] = p.Clone()
	return p, nil
}
