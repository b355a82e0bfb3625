package auth

import (
	"testing"
	"time"

	"github.com/erp/rentledger/internal/domain/identity"
	"github.com/erp/rentledger/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-long-enough"

func newTestService(issuer string) *JWTService {
	return NewJWTService(config.JWTConfig{Secret: testSecret, Issuer: issuer})
}

func testPrincipal() Principal {
	return Principal{TenantID: uuid.New(), UserID: uuid.New(), Username: "ana", Role: identity.RolePropertyAccountant}
}

func TestJWTService_IssueAndValidate(t *testing.T) {
	s := newTestService("rentledger")
	p := testPrincipal()

	token, err := s.Issue(p, time.Hour)
	require.NoError(t, err)

	got, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestJWTService_Validate_Errors(t *testing.T) {
	s := newTestService("rentledger")
	p := testPrincipal()

	t.Run("expired", func(t *testing.T) {
		token, err := s.Issue(p, -time.Minute)
		require.NoError(t, err)
		_, err = s.Validate(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("not yet valid", func(t *testing.T) {
		future := newTestService("rentledger")
		future.now = func() time.Time { return time.Now().Add(time.Hour) }
		token, err := future.Issue(p, 2*time.Hour)
		require.NoError(t, err)
		_, err = s.Validate(token)
		assert.ErrorIs(t, err, ErrTokenNotYetValid)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{Secret: "another-secret-key-of-enough-length", Issuer: "rentledger"})
		token, err := other.Issue(p, time.Hour)
		require.NoError(t, err)
		_, err = s.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := newTestService("someone-else").Issue(p, time.Hour)
		require.NoError(t, err)
		_, err = s.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)), Issuer: "rentledger"},
			TenantID:         p.TenantID.String(),
			UserID:           p.UserID.String(),
			Role:             "staff",
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = s.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := s.Validate("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestClaims_Principal(t *testing.T) {
	valid := Claims{TenantID: uuid.NewString(), UserID: uuid.NewString(), Role: "Property_Admin"}
	p, err := valid.Principal()
	require.NoError(t, err)
	assert.Equal(t, identity.RolePropertyAdmin, p.Role)

	tests := []struct {
		name   string
		claims Claims
		field  string
	}{
		{"bad tenant", Claims{TenantID: "x", UserID: uuid.NewString(), Role: "staff"}, "tenant_id"},
		{"bad user", Claims{TenantID: uuid.NewString(), UserID: "", Role: "staff"}, "user_id"},
		{"unknown role", Claims{TenantID: uuid.NewString(), UserID: uuid.NewString(), Role: "janitor"}, "role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.claims.Principal()
			assert.ErrorIs(t, err, ErrInvalidClaims)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
