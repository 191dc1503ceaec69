package services

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// AppleIssuer is the "iss" claim of Sign in with Apple identity tokens
const AppleIssuer = "https://appleid.apple.com"

// appleKeysTTL is how long fetched signing keys are reused before refetching
const appleKeysTTL = 24 * time.Hour

var (
	// ErrAppleNotConfigured is returned when no Apple client id is configured
	ErrAppleNotConfigured = errors.New("apple sign in is not configured")
	// ErrInvalidIdentityToken is returned for identity tokens that fail verification
	ErrInvalidIdentityToken = errors.New("invalid identity token")
)

// AppleIdentity is the verified content of an identity token
type AppleIdentity struct {
	Subject string
	Email   string
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// appleVerifier verifies identity tokens against Apple's published signing keys
type appleVerifier struct {
	keysURL    string
	clientID   string
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewAppleVerifier creates a verifier that accepts tokens issued for clientID
func NewAppleVerifier(keysURL, clientID string, logger *zap.Logger) *appleVerifier {
	return &appleVerifier{
		keysURL:    keysURL,
		clientID:   clientID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		now:        time.Now,
	}
}

// Verify checks the signature, issuer, audience and expiry of an identity token
func (v *appleVerifier) Verify(ctx context.Context, identityToken string) (*AppleIdentity, error) {
	if v.clientID == "" {
		return nil, ErrAppleNotConfigured
	}

	token, err := jwt.Parse(identityToken, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		return v.key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(AppleIssuer),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		v.logger.Info("identity token rejected", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentityToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidIdentityToken
	}
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidIdentityToken)
	}
	email, _ := claims["email"].(string)

	return &AppleIdentity{Subject: subject, Email: email}, nil
}

// key returns the signing key with the given id, refetching the key set when it is stale or the id is unknown
func (v *appleVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	fresh := v.now().Sub(v.fetchedAt) < appleKeysTTL
	v.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	if err := v.refresh(ctx); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	if key, ok := v.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("unknown signing key %q", kid)
}

func (v *appleVerifier) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.keysURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create keys request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		v.logger.Error("failed to fetch apple keys", zap.Error(err))
		return fmt.Errorf("failed to fetch apple keys: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch apple keys: status %d", resp.StatusCode)
	}

	var set struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("failed to decode apple keys: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAKey(k)
		if err != nil {
			v.logger.Warn("skipping invalid apple key", zap.String("kid", k.Kid), zap.Error(err))
			continue
		}
		keys[k.Kid] = pub
	}

	v.mu.Lock()
	v.keys = keys
	v.fetchedAt = v.now()
	v.mu.Unlock()
	return nil
}

func parseRSAKey(k jwk) (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}
	exponent := new(big.Int).SetBytes(e)
	if !exponent.IsInt64() || exponent.Int64() < 3 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exponent.Int64())}, nil
}
