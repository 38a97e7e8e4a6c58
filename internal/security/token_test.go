package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager(testSecret, "rental-backend", time.Hour)

	token, err := m.GenerateAccessToken("alice", "alice@example.com", []string{RoleStaff})
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.True(t, claims.HasRole(RoleStaff))
	assert.False(t, claims.HasRole(RoleManager))
	assert.NotEmpty(t, claims.ID)

	_, err = m.GenerateAccessToken("", "", nil)
	assert.Error(t, err)
}

func TestTokenManager_Rejections(t *testing.T) {
	m := NewTokenManager(testSecret, "rental-backend", time.Hour)

	t.Run("expired", func(t *testing.T) {
		past := &tokenManager{secret: []byte(testSecret), issuer: "rental-backend", ttl: time.Minute,
			now: func() time.Time { return time.Now().Add(-2 * time.Hour) }}
		token, err := past.GenerateAccessToken("alice", "", nil)
		require.NoError(t, err)
		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("ffffffffffffffffffffffffffffffff", "rental-backend", time.Hour)
		token, err := other.GenerateAccessToken("alice", "", nil)
		require.NoError(t, err)
		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewTokenManager(testSecret, "someone-else", time.Hour)
		token, err := other.GenerateAccessToken("alice", "", nil)
		require.NoError(t, err)
		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong token type", func(t *testing.T) {
		claims := StaffClaims{
			Type: "refresh",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "alice",
				Issuer:    "rental-backend",
				Audience:  jwt.ClaimStrings{"rental-api"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrWrongTokenType)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
