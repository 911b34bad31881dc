package auth

import "errors"

var (
	// ErrInvalidToken indicates a malformed or badly signed session token.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrExpiredToken indicates a session token past its expiry.
	ErrExpiredToken = errors.New("session token expired")

	// ErrBadCredentials indicates a failed username/password check.
	ErrBadCredentials = errors.New("invalid username or password")
)
