package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTokenSecret = "0123456789abcdef0123456789abcdef"

func TestTokenService_RoundTrip(t *testing.T) {
	svc, err := NewTokenService(testTokenSecret, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, svc.TTL())

	player := uuid.New()
	token, data, err := svc.GenerateToken(player)
	require.NoError(t, err)
	assert.Equal(t, player, data.PlayerUUID)
	assert.Equal(t, 2*time.Hour, data.ExpiresAt.Sub(data.IssuedAt))

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, player, got.PlayerUUID)
	assert.True(t, got.ExpiresAt.Equal(data.ExpiresAt))
}

func TestTokenService_Expired(t *testing.T) {
	svc, err := NewTokenService(testTokenSecret, time.Hour)
	require.NoError(t, err)

	issued := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issued }
	token, _, err := svc.GenerateToken(uuid.New())
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenService_RejectsForeignTokens(t *testing.T) {
	svc, err := NewTokenService(testTokenSecret, time.Hour)
	require.NoError(t, err)
	other, err := NewTokenService("another-secret-of-enough-length", time.Hour)
	require.NoError(t, err)

	token, _, err := other.GenerateToken(uuid.New())
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    TokenIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(unsigned)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	wrongSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "steve",
		Issuer:    TokenIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testTokenSecret))
	require.NoError(t, err)
	_, err = svc.ValidateToken(wrongSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short", time.Hour)
	assert.Error(t, err)
}
