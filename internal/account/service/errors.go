package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrEmailTaken         = errors.New("email_taken")
	ErrAccountExists      = errors.New("account_already_exists")
	ErrAccountNotActive   = errors.New("account_not_active")
	ErrInvalidVerifyToken = errors.New("invalid_verification_token")
	ErrAlreadyVerified    = errors.New("already_verified")
	ErrPasswordMismatch   = errors.New("password_mismatch")
	ErrTokenBlacklisted   = errors.New("token_blacklisted")
	ErrTokenRevoked       = errors.New("token_revoked")
)
