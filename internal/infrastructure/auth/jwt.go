// Package auth verifies bearer tokens issued by the identity provider.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/erp/rentledger/internal/domain/identity"
	"github.com/erp/rentledger/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidClaims    = errors.New("invalid token claims")
)

// Claims are the token claims the ledger relies on
type Claims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role"`
}

// Principal is the verified caller of a request
type Principal struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Username string
	Role     identity.Role
}

// Principal parses the identity claims. Any malformed value yields
// ErrInvalidClaims.
func (c *Claims) Principal() (Principal, error) {
	tenantID, err := uuid.Parse(c.TenantID)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: tenant_id", ErrInvalidClaims)
	}
	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: user_id", ErrInvalidClaims)
	}
	role, err := identity.ParseRole(c.Role)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: role", ErrInvalidClaims)
	}
	return Principal{TenantID: tenantID, UserID: userID, Username: c.Username, Role: role}, nil
}

// JWTService validates HS256 tokens signed with the shared secret
type JWTService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{secret: []byte(cfg.Secret), issuer: cfg.Issuer, now: time.Now}
}

// Validate checks signature, time claims and issuer (when configured) and
// returns the caller
func (s *JWTService) Validate(tokenString string) (Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Principal{}, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return Principal{}, ErrTokenNotYetValid
	case err != nil:
		return Principal{}, ErrInvalidToken
	}
	return claims.Principal()
}

// Issue signs a token for p valid for ttl. Production tokens come from the
// identity provider; this serves local development and tests.
func (s *JWTService) Issue(p Principal, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TenantID: p.TenantID.String(),
		UserID:   p.UserID.String(),
		Username: p.Username,
		Role:     p.Role.String(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
