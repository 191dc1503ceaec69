package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenExpiry is the lifetime of a session token
const DefaultTokenExpiry = 7 * 24 * time.Hour

// TokenGenerator handles JWT session token generation and validation
type TokenGenerator struct {
	secret      string
	tokenExpiry time.Duration
	now         func() time.Time
}

// NewTokenGenerator creates a new token generator. A non-positive expiry selects DefaultTokenExpiry.
func NewTokenGenerator(secret string, expiry time.Duration) *TokenGenerator {
	if expiry <= 0 {
		expiry = DefaultTokenExpiry
	}
	return &TokenGenerator{
		secret:      secret,
		tokenExpiry: expiry,
		now:         time.Now,
	}
}

// GenerateToken creates a session token carrying the user id and email
func (tg *TokenGenerator) GenerateToken(userID, email string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}

	now := tg.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     now.Add(tg.tokenExpiry).Unix(),
		"iat":     now.Unix(),
		"type":    "access",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tg.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a session token and returns the user id
func (tg *TokenGenerator) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tg.secret), nil
	}, jwt.WithTimeFunc(tg.now))

	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", fmt.Errorf("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != "access" {
		return "", fmt.Errorf("token is not an access token")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user_id not found in token")
	}

	return userID, nil
}
