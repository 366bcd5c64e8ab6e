package service

import (
	"errors"
	"fmt"
	"time"

	"plus-api/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenIssuer is the iss claim of every player token.
	TokenIssuer = "plus-api"

	// DefaultTokenTTL is the default token lifetime.
	DefaultTokenTTL = 2 * time.Hour
)

// TokenService issues and validates HS256 player tokens. The subject is
// the hyphenated player UUID.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service. ttl <= 0 uses DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("token secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// GenerateToken signs a token for player.
func (s *TokenService) GenerateToken(player uuid.UUID) (string, *model.TokenData, error) {
	now := s.now().UTC().Truncate(time.Second)
	data := &model.TokenData{
		PlayerUUID: player,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.ttl),
	}

	claims := jwt.RegisteredClaims{
		Subject:   player.String(),
		Issuer:    TokenIssuer,
		IssuedAt:  jwt.NewNumericDate(data.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(data.ExpiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, data, nil
}

// ValidateToken parses a token and returns its data. Every failure is
// reported as ErrInvalidToken.
func (s *TokenService) ValidateToken(token string) (*model.TokenData, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	player, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, fmt.Errorf("invalid subject: %w", err))
	}

	data := &model.TokenData{PlayerUUID: player, ExpiresAt: claims.ExpiresAt.Time}
	if claims.IssuedAt != nil {
		data.IssuedAt = claims.IssuedAt.Time
	}
	return data, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}
