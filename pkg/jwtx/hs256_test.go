package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/lumehq/accountd/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "accountd-test"

var testSecret = []byte("test-secret-please-rotate")

func newTestClaims(ttl time.Duration, now time.Time) jwtx.Claims {
	return jwtx.NewSessionClaims(
		"user-1", "alice", "alice@example.com", "role-1",
		"session-1", jwtx.TokenKindAccess, ttl, testIssuer, now,
	)
}

func TestNewHS256RequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := jwtx.NewHS256(nil, testIssuer)
	require.Error(t, err)
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	h, err := jwtx.NewHS256(testSecret, testIssuer)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	token, err := h.Sign(newTestClaims(time.Minute, now))
	require.NoError(t, err)

	claims, err := h.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID())
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, "role-1", claims.RoleID)
	require.Equal(t, "session-1", claims.SID)
	require.Equal(t, now.Unix(), claims.IssuedAtUnix())
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	h, err := jwtx.NewHS256(testSecret, testIssuer)
	require.NoError(t, err)

	issued := time.Now().UTC().Add(-2 * time.Minute)
	token, err := h.Sign(newTestClaims(time.Minute, issued))
	require.NoError(t, err)

	_, err = h.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	h, err := jwtx.NewHS256(testSecret, testIssuer)
	require.NoError(t, err)
	other, err := jwtx.NewHS256([]byte("a-different-secret"), testIssuer)
	require.NoError(t, err)

	token, err := h.Sign(newTestClaims(time.Minute, time.Now().UTC()))
	require.NoError(t, err)

	_, err = other.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	signer, err := jwtx.NewHS256(testSecret, "someone-else")
	require.NoError(t, err)
	verifier, err := jwtx.NewHS256(testSecret, testIssuer)
	require.NoError(t, err)

	token, err := signer.Sign(jwtx.NewSessionClaims(
		"user-1", "alice", "alice@example.com", "role-1",
		"session-1", jwtx.TokenKindAccess, time.Minute, "someone-else", time.Now().UTC(),
	))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	t.Parallel()

	h, err := jwtx.NewHS256(testSecret, testIssuer)
	require.NoError(t, err)

	_, err = h.Verify("not.a.jwt")
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}

func TestDecodeUnverifiedIgnoresSignatureAndExpiry(t *testing.T) {
	t.Parallel()

	h, err := jwtx.NewHS256(testSecret, testIssuer)
	require.NoError(t, err)

	// Expired token signed with a secret the decoder never sees.
	issued := time.Now().UTC().Add(-time.Hour)
	token, err := h.Sign(newTestClaims(time.Minute, issued))
	require.NoError(t, err)

	// Corrupt the signature segment entirely.
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + ".AAAA"

	claims, err := jwtx.DecodeUnverified(tampered)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID())
	require.Equal(t, "session-1", claims.SID)
	require.Equal(t, issued.Truncate(time.Second).Unix(), claims.IssuedAtUnix())
}

func TestDecodeUnverifiedRejectsMalformed(t *testing.T) {
	t.Parallel()

	_, err := jwtx.DecodeUnverified("definitely-not-a-token")
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}
