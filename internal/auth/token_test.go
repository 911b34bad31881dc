package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemohq/mnemo/internal/config"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:    "0123456789abcdef0123456789abcdef",
		Username:     "syncuser",
		PasswordHash: "$2a$10$irrelevantforthesetests000000000000000000000000000000",
	}
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	svc, err := NewTokenService(testAuthConfig())
	require.NoError(t, err)

	ctx := context.Background()
	token, err := svc.Generate(ctx, "syncuser")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	username, err := svc.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "syncuser", username)
}

func TestTokenRejectsShortSecret(t *testing.T) {
	t.Parallel()

	cfg := testAuthConfig()
	cfg.JWTSecret = "too-short"
	_, err := NewTokenService(cfg)
	assert.Error(t, err)
}

func TestTokenExpiry(t *testing.T) {
	t.Parallel()

	svc, err := NewTokenService(testAuthConfig())
	require.NoError(t, err)
	impl := svc.(*hmacTokenService)

	issued := time.Now()
	impl.timeFunc = func() time.Time { return issued }

	ctx := context.Background()
	token, err := svc.Generate(ctx, "syncuser")
	require.NoError(t, err)

	// Validation past the lifetime plus leeway fails with the expiry
	// sentinel.
	impl.timeFunc = func() time.Time { return issued.Add(sessionLifetime + clockSkew + time.Minute) }
	_, err = svc.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenRejectsTampering(t *testing.T) {
	t.Parallel()

	svc, err := NewTokenService(testAuthConfig())
	require.NoError(t, err)

	ctx := context.Background()
	token, err := svc.Generate(ctx, "syncuser")
	require.NoError(t, err)

	_, err = svc.Validate(ctx, token+"x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	otherCfg := testAuthConfig()
	otherCfg.JWTSecret = "ffffffffffffffffffffffffffffffff"
	other, err := NewTokenService(otherCfg)
	require.NoError(t, err)

	_, err = other.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordVerifier(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	v := NewBcryptVerifier()
	assert.NoError(t, v.Compare(hash, "correct horse"))
	assert.Error(t, v.Compare(hash, "wrong horse"))
}
