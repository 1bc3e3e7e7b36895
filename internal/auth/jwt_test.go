package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sign(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() Claims {
	now := time.Now()
	return Claims{
		UserID:    "user-1",
		Role:      "user",
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "nizami",
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
	}
}

func TestValidateAccessToken(t *testing.T) {
	v := NewValidator(testSecret, "nizami")

	claims, err := v.ValidateAccessToken(sign(t, testSecret, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user", claims.Role)
}

func TestValidateAccessTokenRejects(t *testing.T) {
	v := NewValidator(testSecret, "nizami")

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	refresh := validClaims()
	refresh.TokenType = "refresh"

	otherIssuer := validClaims()
	otherIssuer.Issuer = "someone-else"

	tests := []struct {
		name  string
		token string
		err   error
	}{
		{"expired", sign(t, testSecret, expired), ErrExpiredToken},
		{"refresh token", sign(t, testSecret, refresh), ErrInvalidToken},
		{"wrong secret", sign(t, "other", validClaims()), ErrInvalidToken},
		{"wrong issuer", sign(t, testSecret, otherIssuer), ErrInvalidToken},
		{"garbage", "not-a-token", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestSubjectFallback(t *testing.T) {
	claims := validClaims()
	claims.UserID = ""

	got, err := NewValidator(testSecret, "").ValidateAccessToken(sign(t, testSecret, claims))
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
}

func TestExtractTokenFromBearer(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromBearer("Bearer abc"))
	assert.Equal(t, "abc", ExtractTokenFromBearer("bearer abc"))
	assert.Empty(t, ExtractTokenFromBearer("Basic abc"))
	assert.Empty(t, ExtractTokenFromBearer("abc"))
}
