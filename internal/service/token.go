package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sumire/storefront/internal/domain"
)

// FallbackSecret signs session tokens when no secret is configured.
// Anyone who knows it can mint tokens, so production must set SESSION_SECRET.
const FallbackSecret = "fallback-secret"

// DefaultSessionTTL is the lifetime of a session token and its cookie.
const DefaultSessionTTL = 30 * 24 * time.Hour

// ErrInvalidToken is returned for any token that fails decoding.
var ErrInvalidToken = errors.New("invalid session token")

// SessionClaims is the identity carried by a session token.
type SessionClaims struct {
	Name    string      `json:"name,omitempty"`
	Email   string      `json:"email,omitempty"`
	Picture string      `json:"picture,omitempty"`
	Role    domain.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ClaimsForUser builds session claims from a user record.
func ClaimsForUser(u *domain.User) SessionClaims {
	claims := SessionClaims{
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: u.ID,
		},
	}
	if u.Name != nil {
		claims.Name = *u.Name
	}
	if u.Image != nil {
		claims.Picture = *u.Image
	}
	return claims
}

// TokenCodec signs and verifies HS256 session tokens.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec creates a TokenCodec. An empty secret falls back to
// FallbackSecret; a non-positive ttl falls back to DefaultSessionTTL.
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	if secret == "" {
		slog.Warn("SESSION_SECRET is not set, signing session tokens with the well-known fallback secret")
		secret = FallbackSecret
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenCodec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns the token lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Encode signs claims with a fresh issued-at, expiry and token ID.
func (c *TokenCodec) Encode(claims SessionClaims) (string, error) {
	if claims.Subject == "" {
		return "", fmt.Errorf("encode session token: subject is required")
	}

	now := c.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	claims.ID = uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry of token and returns its claims.
// Every failure is reported as ErrInvalidToken.
func (c *TokenCodec) Decode(token string) (*SessionClaims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &SessionClaims{}, func(_ *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
