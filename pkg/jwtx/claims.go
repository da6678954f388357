package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants for the access/refresh pair. Both kinds share
// the same payload shape and signing secret and differ only in lifetime.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	// Short-lived for security - typical range is 15m to 1h.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	// Longer-lived for user convenience - typical range is 7d to 30d.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token kinds. Both tokens of a pair share payload shape and secret, so the
// kind claim is the only thing separating a refresh token from an access
// token; the refresh endpoint rejects anything not marked refresh.
const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"
)

// Claims are the session-token claims used across the service. The subject
// carries the user id; SID is the session id minted once per login and shared
// by the access and refresh token issued together, so either one can be
// blacklisted or checked against the per-user revocation threshold.
type Claims struct {
	jwt.RegisteredClaims

	// SID is the session id, unique per login call.
	SID string `json:"sid,omitempty"`

	// Kind marks the token as access or refresh.
	Kind string `json:"kind,omitempty"`

	// Username of the authenticated user.
	Username string `json:"username,omitempty"`

	// Email of the authenticated user.
	Email string `json:"email,omitempty"`

	// RoleID references the user's role record, never the embedded role.
	RoleID string `json:"role_id,omitempty"`
}

// NewSessionClaims builds minimally-correct claims for one token of a login
// pair. The caller supplies now and sid so both tokens of the pair share the
// same issue timestamp and session id.
func NewSessionClaims(
	userID, username, email, roleID string,
	sid, kind string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		SID:      sid,
		Kind:     kind,
		Username: username,
		Email:    email,
		RoleID:   roleID,
	}
}

// UserID returns the subject claim under its domain name.
func (c *Claims) UserID() string { return c.Subject }

// IssuedAtUnix returns the issue timestamp in epoch seconds, or 0 when the
// claim is absent. Revocation thresholds compare against this value.
func (c *Claims) IssuedAtUnix() int64 {
	if c.IssuedAt == nil {
		return 0
	}
	return c.IssuedAt.Unix()
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf).
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}
