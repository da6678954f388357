package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/lumehq/accountd/internal/account/service"
	"github.com/lumehq/accountd/pkg/httpx"
	"github.com/lumehq/accountd/pkg/jwtx"
	"github.com/lumehq/accountd/pkg/slogx"
)

// RevocationGuard rejects blacklisted and threshold-revoked sessions before
// any signature work happens. The token is only DECODED here, never verified:
// the guard needs the user id, session id and iat, and a forged token that
// names a live session still has to get past the signature guard behind it.
// This guard must never run without SignatureGuard after it.
func RevocationGuard(sessions *service.SessionService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := httpx.BearerToken(r)
			if !ok {
				httpx.WriteError(w, httpx.ErrInvalidToken)
				return
			}

			claims, err := jwtx.DecodeUnverified(token)
			if err != nil || claims.UserID() == "" || claims.SID == "" {
				httpx.WriteError(w, httpx.ErrInvalidToken)
				return
			}

			err = sessions.CheckRevocation(r.Context(), claims.UserID(), claims.SID, claims.IssuedAtUnix())
			switch {
			case errors.Is(err, service.ErrTokenBlacklisted):
				httpx.WriteError(w, httpx.ErrTokenBlacklisted)
				return
			case errors.Is(err, service.ErrTokenRevoked):
				httpx.WriteError(w, httpx.ErrTokenRevoked)
				return
			case err != nil:
				slogx.FromContext(r.Context()).Error("revocation check failed", "error", err)
				httpx.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SignatureGuard verifies the bearer token cryptographically and attaches the
// authenticated identity to the request context. Expiry, not-before and
// issuer are enforced by the verifier.
func SignatureGuard(verifier jwtx.Verifier) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := httpx.BearerToken(r)
			if !ok {
				httpx.WriteError(w, httpx.ErrInvalidToken)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				httpx.WriteError(w, httpx.ErrTokenVerification)
				return
			}

			ctx := context.WithValue(r.Context(), httpx.CtxKeyUserID, claims.UserID())
			ctx = context.WithValue(ctx, httpx.CtxKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// claimsFromContext returns the verified claims attached by SignatureGuard.
func claimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	claims, ok := ctx.Value(httpx.CtxKeyClaims).(jwtx.Claims)
	return claims, ok
}
