package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/safetyfirst/backend/internal/clock"
	"github.com/safetyfirst/backend/internal/lifecycle"
	"github.com/safetyfirst/backend/internal/models"
)

const issuer = "safety-first"

// Claims is the JWT payload. The subject carries the user id.
type Claims struct {
	Role  models.UserRole `json:"role"`
	Email string          `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for u and returns it with its expiry.
func (m *TokenManager) Issue(ctx context.Context, u models.User) (string, time.Time, error) {
	now := clock.Now(ctx)
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		Role:  u.Role,
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies raw and returns the actor it identifies.
func (m *TokenManager) Parse(ctx context.Context, raw string) (lifecycle.Actor, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return clock.Now(ctx) }),
	)
	if err != nil {
		return lifecycle.Actor{}, fmt.Errorf("%w: %w", models.ErrUnauthenticated, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return lifecycle.Actor{}, fmt.Errorf("%w: bad subject: %w", models.ErrUnauthenticated, err)
	}
	if !claims.Role.Valid() {
		return lifecycle.Actor{}, fmt.Errorf("%w: unknown role %q", models.ErrUnauthenticated, claims.Role)
	}
	return lifecycle.Actor{ID: id, Role: claims.Role}, nil
}
