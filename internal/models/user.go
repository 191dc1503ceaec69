package models

import (
	"strings"
	"time"
)

// Language is the user's preferred content language
type Language string

const (
	LanguageEnglish Language = "English"
	LanguageHindi   Language = "Hindi"
)

// Slug returns the backend value for the language
func (l Language) Slug() string {
	if l == LanguageHindi {
		return "hindi"
	}
	return "english"
}

// ParseLanguage maps a language name or backend slug to a Language
func ParseLanguage(value string) (Language, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "english", "en":
		return LanguageEnglish, true
	case "hindi", "hi":
		return LanguageHindi, true
	}
	return "", false
}

// User represents an account stored by the backend
type User struct {
	ID           string    `json:"_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize password hash
	AppleSubject string    `json:"-"`
	Name         string    `json:"name,omitempty"`
	Age          *int      `json:"age,omitempty"`
	Language     string    `json:"language,omitempty"`
	Preferences  []string  `json:"preferences"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserProfile is the public user document returned by /api/users endpoints
type UserProfile struct {
	ID          string   `json:"_id"`
	Email       string   `json:"email"`
	Name        string   `json:"name,omitempty"`
	Age         *int     `json:"age,omitempty"`
	Language    string   `json:"language,omitempty"`
	Preferences []string `json:"preferences,omitempty"`
}

// Profile returns the public view of the user
func (u *User) Profile() *UserProfile {
	prefs := make([]string, len(u.Preferences))
	copy(prefs, u.Preferences)
	return &UserProfile{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Age:         u.Age,
		Language:    u.Language,
		Preferences: prefs,
	}
}

// UpdateUserRequest is the body of PATCH /api/users/me. Nil fields are left unchanged.
type UpdateUserRequest struct {
	Name        *string  `json:"name,omitempty"`
	Age         *int     `json:"age,omitempty"`
	Language    *string  `json:"language,omitempty"`
	Preferences []string `json:"preferences,omitempty"`
}

// SignupRequest is the body of POST /api/users/signup
type SignupRequest struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Name        string   `json:"name,omitempty"`
	Preferences []string `json:"preferences,omitempty"`
}

// LoginRequest is the body of POST /api/users/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AppleLoginRequest is the body of POST /api/users/apple-login
type AppleLoginRequest struct {
	IdentityToken string `json:"identityToken"`
	Email         string `json:"email,omitempty"`
}

// AuthResponse is returned by the signup and login endpoints
type AuthResponse struct {
	Message string       `json:"message,omitempty"`
	Token   string       `json:"token"`
	User    *UserProfile `json:"user"`
}

// HealthResponse is returned by GET /api/health
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
