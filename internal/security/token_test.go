package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentfun-backend/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var wallet = domain.MustAddress("0x1e4d000000000000000000000000000000000004")

func TestTokenManager(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		tm := NewTokenManager(testSecret, time.Hour)
		token, err := tm.GenerateAccessToken(wallet, []string{"admin"})
		require.NoError(t, err)

		claims, err := tm.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, wallet, claims.Address)
		assert.Equal(t, TokenTypeAccess, claims.Type)
		assert.True(t, claims.HasRole("admin"))
		assert.False(t, claims.HasRole("operator"))
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("unique token ids", func(t *testing.T) {
		tm := NewTokenManager(testSecret, time.Hour)
		a, err := tm.GenerateAccessToken(wallet, nil)
		require.NoError(t, err)
		b, err := tm.GenerateAccessToken(wallet, nil)
		require.NoError(t, err)
		ca, _ := tm.ValidateToken(a)
		cb, _ := tm.ValidateToken(b)
		assert.NotEqual(t, ca.ID, cb.ID)
	})

	t.Run("expired", func(t *testing.T) {
		tm := &tokenManager{secret: []byte(testSecret), ttl: time.Minute, now: time.Now}
		token, err := tm.GenerateAccessToken(wallet, nil)
		require.NoError(t, err)

		tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewTokenManager(testSecret, time.Hour).GenerateAccessToken(wallet, nil)
		require.NoError(t, err)
		_, err = NewTokenManager("another-secret-another-secret-xx", time.Hour).ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		claims := AccountClaims{
			Address: wallet,
			Type:    TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "someone-else",
				Audience:  jwt.ClaimStrings{audience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = NewTokenManager(testSecret, time.Hour).ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("zero address rejected", func(t *testing.T) {
		_, err := NewTokenManager(testSecret, time.Hour).GenerateAccessToken(domain.ZeroAddress, nil)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := NewTokenManager(testSecret, time.Hour).ValidateToken("not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
