// Package auth hashes passwords and issues and verifies session tokens.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// MinSecretBytes is the shortest HMAC secret accepted
const MinSecretBytes = 32

const usernameClaim = "username"

// Claims are the values carried by a session token
type Claims struct {
	UserID    uuid.UUID
	Username  string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenManager signs and verifies HS256 session tokens
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a token manager. The secret must be at least
// MinSecretBytes long.
func NewTokenManager(secret []byte, issuer string, ttl time.Duration) (*TokenManager, error) {
	if len(secret) < MinSecretBytes {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinSecretBytes)
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &TokenManager{secret: secret, issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// GenerateSecret returns a random secret for deployments that did not set one
func GenerateSecret() ([]byte, error) {
	b := make([]byte, MinSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	return b, nil
}

// TTL returns how long issued tokens stay valid
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue returns a signed token for the user
func (m *TokenManager) Issue(userID uuid.UUID, username string) (string, *Claims, error) {
	now := m.now().UTC().Truncate(time.Second)
	claims := &Claims{
		UserID:    userID,
		Username:  username,
		TokenID:   uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}

	tok, err := jwt.NewBuilder().
		Issuer(m.issuer).
		Subject(userID.String()).
		JwtID(claims.TokenID).
		IssuedAt(claims.IssuedAt).
		NotBefore(claims.IssuedAt).
		Expiration(claims.ExpiresAt).
		Claim(usernameClaim, username).
		Build()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, m.secret))
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), claims, nil
}

// Verify checks the signature, issuer and validity window of a token
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	tok, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256, m.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.issuer),
		jwt.WithClock(jwt.ClockFunc(m.now)),
		jwt.WithAcceptableSkew(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}

	userID, err := uuid.Parse(tok.Subject())
	if err != nil {
		return nil, fmt.Errorf("token subject is not a user id: %w", err)
	}

	claims := &Claims{
		UserID:    userID,
		TokenID:   tok.JwtID(),
		IssuedAt:  tok.IssuedAt(),
		ExpiresAt: tok.Expiration(),
	}
	if v, ok := tok.Get(usernameClaim); ok {
		if s, ok := v.(string); ok {
			claims.Username = s
		}
	}
	return claims, nil
}
