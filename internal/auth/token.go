// Package auth implements the sync server's credential check and the
// short-lived HS256 session tokens that authenticate protocol calls.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/config"
	"github.com/mnemohq/mnemo/internal/platform/logger"
)

// sessionLifetime bounds how long a sync session token stays valid. A
// sync round takes seconds; an hour leaves room for slow full
// transfers.
const sessionLifetime = time.Hour

// clockSkew is the leeway allowed when validating time claims.
const clockSkew = 2 * time.Minute

// TokenService issues and validates session tokens.
type TokenService interface {
	// Generate creates a signed session token for the given account.
	Generate(ctx context.Context, username string) (string, error)

	// Validate checks a session token and returns the account name.
	// Returns ErrExpiredToken or ErrInvalidToken on failure.
	Validate(ctx context.Context, token string) (string, error)
}

type hmacTokenService struct {
	signingKey []byte
	timeFunc   func() time.Time
}

type sessionClaims struct {
	Username string `json:"sub_name"`
	jwt.RegisteredClaims
}

var _ TokenService = (*hmacTokenService)(nil)

// NewTokenService creates an HS256 token service from the auth
// configuration.
func NewTokenService(cfg config.AuthConfig) (TokenService, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}
	return &hmacTokenService{
		signingKey: []byte(cfg.JWTSecret),
		timeFunc:   time.Now,
	}, nil
}

// Generate implements TokenService.Generate.
func (s *hmacTokenService) Generate(ctx context.Context, username string) (string, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc()

	claims := sessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionLifetime)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		log.Error("failed to sign session token", "error", err, "username", username)
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Validate implements TokenService.Validate.
func (s *hmacTokenService) Validate(ctx context.Context, tokenString string) (string, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc()

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&sessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			log.Debug("session token expired", "error", err)
			return "", ErrExpiredToken
		}
		log.Debug("session token validation failed", "error", err)
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	return claims.Username, nil
}
