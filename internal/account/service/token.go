package service

import (
	"time"

	"github.com/lumehq/accountd/internal/account/domain"
	"github.com/lumehq/accountd/pkg/idx"
	"github.com/lumehq/accountd/pkg/jwtx"
)

// TokenService mints access/refresh pairs. Both tokens of a pair are signed
// in the same instant with the same session id, so the session guards treat
// them as one revocable unit.
type TokenService struct {
	Signer     jwtx.Signer
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func NewTokenService(signer jwtx.Signer, issuer string, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = jwtx.DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	return &TokenService{
		Signer:     signer,
		Issuer:     issuer,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
	}
}

// IssuePair mints a fresh access/refresh pair for user with a new session id.
func (s *TokenService) IssuePair(user domain.User) (domain.TokenPair, error) {
	return s.IssuePairAt(user, time.Now())
}

// IssuePairAt mints a pair with an explicit issue time. Both tokens share the
// same sid and iat.
func (s *TokenService) IssuePairAt(user domain.User, now time.Time) (domain.TokenPair, error) {
	sid := idx.New().String()

	access, err := s.Signer.Sign(jwtx.NewSessionClaims(
		user.ID, user.Username, user.Email, user.RoleID,
		sid, jwtx.TokenKindAccess, s.AccessTTL, s.Issuer, now,
	))
	if err != nil {
		return domain.TokenPair{}, err
	}

	refresh, err := s.Signer.Sign(jwtx.NewSessionClaims(
		user.ID, user.Username, user.Email, user.RoleID,
		sid, jwtx.TokenKindRefresh, s.RefreshTTL, s.Issuer, now,
	))
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}, nil
}
