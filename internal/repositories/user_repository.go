package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/barkatlearn/learn/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const userColumns = `id, email, password_hash, apple_subject, name, age, language, preferences, created_at`

// userRepository implements the user repository on MySQL
type userRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *userRepository {
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new user and assigns it a UUID
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, apple_subject, name, age, language, preferences, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	prefs, err := encodeIDs(user.Preferences)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	email := strings.ToLower(strings.TrimSpace(user.Email))
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, query,
		id,
		email,
		user.PasswordHash,
		nullString(user.AppleSubject),
		user.Name,
		nullAge(user.Age),
		user.Language,
		prefs,
		createdAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrEmailTaken
		}
		r.logger.Error("failed to create user", zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.ID = id
	user.Email = email
	user.CreatedAt = createdAt
	return nil
}

// GetByEmail retrieves a user by email. Emails are stored lower case.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ? LIMIT 1`
	return r.getOne(ctx, "email", query, strings.ToLower(strings.TrimSpace(email)))
}

// GetByID retrieves a user by id
func (r *userRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ? LIMIT 1`
	return r.getOne(ctx, "id", query, userID)
}

// GetByAppleSubject retrieves the user linked to a Sign in with Apple subject
func (r *userRepository) GetByAppleSubject(ctx context.Context, subject string) (*models.User, error) {
	if subject == "" {
		return nil, ErrUserNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE apple_subject = ? LIMIT 1`
	return r.getOne(ctx, "apple_subject", query, subject)
}

func (r *userRepository) getOne(ctx context.Context, field, query string, arg any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		r.logger.Error("failed to get user", zap.String("by", field), zap.Error(err))
		return nil, fmt.Errorf("failed to get user by %s: %w", field, err)
	}
	return user, nil
}

// Update stores the profile fields and the Apple link of an existing user
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET apple_subject = ?, name = ?, age = ?, language = ?, preferences = ?
		WHERE id = ?
	`

	prefs, err := encodeIDs(user.Preferences)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query,
		nullString(user.AppleSubject),
		user.Name,
		nullAge(user.Age),
		user.Language,
		prefs,
		user.ID,
	)
	if err != nil {
		r.logger.Error("failed to update user", zap.String("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireAffected(result, ErrUserNotFound)
}

// Delete removes a user. Progress rows are removed by the foreign key cascade.
func (r *userRepository) Delete(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		r.logger.Error("failed to delete user", zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireAffected(result, ErrUserNotFound)
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		user         models.User
		appleSubject sql.NullString
		age          sql.NullInt64
		prefs        []byte
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&appleSubject,
		&user.Name,
		&age,
		&user.Language,
		&prefs,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.AppleSubject = appleSubject.String
	if age.Valid {
		v := int(age.Int64)
		user.Age = &v
	}
	if user.Preferences, err = decodeIDs(prefs); err != nil {
		return nil, err
	}
	return &user, nil
}

func requireAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullAge(age *int) sql.NullInt64 {
	if age == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*age), Valid: true}
}
