package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/catalog/internal/entities"
)

func tokenUser() *entities.User {
	return &entities.User{
		ID:       7,
		Email:    "api@example.com",
		Profile:  &entities.UserProfile{Role: entities.RoleLibrarian},
		IsActive: true,
	}
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", "catalog", time.Hour)

	token, expires, err := tm.Issue(tokenUser())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)
	assert.Equal(t, "api@example.com", claims.Email)
	assert.Equal(t, entities.RoleLibrarian, claims.Role)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	tm := NewTokenManager("test-secret", "catalog", time.Minute)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := tm.Issue(tokenUser())
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsWrongSecretAndIssuer(t *testing.T) {
	issuer := NewTokenManager("secret-a", "catalog", time.Hour)
	token, _, err := issuer.Issue(tokenUser())
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", "catalog", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenManager("secret-a", "other", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1", Issuer: "catalog"}}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", "catalog", time.Hour).Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_DisabledWithoutSecret(t *testing.T) {
	tm := NewTokenManager("", "catalog", time.Hour)
	assert.Nil(t, tm)

	_, _, err := tm.Issue(tokenUser())
	assert.ErrorIs(t, err, ErrTokensDisabled)
	_, err = tm.Parse("x")
	assert.ErrorIs(t, err, ErrTokensDisabled)
}
