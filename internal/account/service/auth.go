package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/lumehq/accountd/internal/account/domain"
	"github.com/lumehq/accountd/internal/account/mail"
	"github.com/lumehq/accountd/internal/account/store"
	"github.com/lumehq/accountd/pkg/cryptox"
	"github.com/lumehq/accountd/pkg/idx"
	"github.com/lumehq/accountd/pkg/jwtx"
	"github.com/lumehq/accountd/pkg/slogx"
)

// AuthService implements registration, login and the session lifecycle.
type AuthService struct {
	Store    store.Store
	Tokens   *TokenService
	Sessions *SessionService
	Mailer   mail.Sender

	// VerifyBaseURL is the public endpoint the emailed verification link
	// points at. The raw token rides in its query string.
	VerifyBaseURL string
}

// RegisterParams carries the validated registration input.
type RegisterParams struct {
	Username string
	Email    string
	Password string
	Phone    *string
}

// Register creates a pending account and emails the verification link. The
// account stays INACTIVE and cannot log in until the link is used. The send
// is awaited: when the relay rejects the message the registration fails and
// nothing is left behind for the caller to retry against.
func (s *AuthService) Register(ctx context.Context, p RegisterParams) (domain.User, error) {
	l := slogx.FromContext(ctx)

	if _, err := s.Store.Users().GetUserByEmail(ctx, p.Email); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	role, err := s.Store.Roles().GetRoleByType(ctx, domain.RoleTypeUser)
	if err != nil {
		return domain.User{}, fmt.Errorf("resolve default role: %w", err)
	}

	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return domain.User{}, err
	}

	rawToken, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.User{}, err
	}
	fingerprint := cryptox.FingerprintToken(rawToken)

	user := domain.User{
		ID:                idx.New().String(),
		Username:          p.Username,
		Email:             p.Email,
		PasswordHash:      hash,
		Phone:             p.Phone,
		RoleID:            role.ID,
		Status:            domain.UserStatusInactive,
		Verified:          false,
		VerificationToken: &fingerprint,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// The email pre-check already passed, so the violated unique
			// constraint may be the phone. The driver does not say which
			// column fired; stay vague rather than blame the email.
			return domain.User{}, ErrAccountExists
		}
		return domain.User{}, err
	}

	if err := s.Mailer.SendVerificationEmail(ctx, user.Email, user.Username, s.verifyURL(rawToken)); err != nil {
		l.Error("verification email failed", slog.String("user_id", user.ID), slog.Any("error", err))
		return domain.User{}, fmt.Errorf("send verification email: %w", err)
	}

	l.Info("user registered", slog.String("user_id", user.ID))
	return user, nil
}

func (s *AuthService) verifyURL(rawToken string) string {
	return s.VerifyBaseURL + "?token=" + url.QueryEscape(rawToken)
}

// ValidateUser checks the credentials without minting tokens. Unknown email
// and wrong password collapse to the same error so the endpoint cannot be
// used to probe for accounts.
func (s *AuthService) ValidateUser(ctx context.Context, email, password string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}

	if !user.CanLogin() {
		return domain.User{}, ErrAccountNotActive
	}

	return user, nil
}

// Login validates the credentials and issues a fresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.TokenPair, error) {
	user, err := s.ValidateUser(ctx, email, password)
	if err != nil {
		return domain.TokenPair{}, err
	}

	pair, err := s.Tokens.IssuePair(user)
	if err != nil {
		return domain.TokenPair{}, err
	}

	slogx.FromContext(ctx).Info("user logged in", slog.String("user_id", user.ID))
	return pair, nil
}

// VerifyEmail consumes a verification token and activates the account. The
// token is single-use: activation clears the stored fingerprint, so a replay
// finds nothing and fails the same way an invented token does.
func (s *AuthService) VerifyEmail(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return ErrInvalidVerifyToken
	}
	fingerprint := cryptox.FingerprintToken(rawToken)

	user, err := s.Store.Users().GetInactiveUserByVerificationToken(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidVerifyToken
		}
		return err
	}

	if user.Verified {
		return ErrAlreadyVerified
	}

	if err := s.Store.Users().MarkUserVerified(ctx, user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Lost the race with a concurrent verify.
			return ErrAlreadyVerified
		}
		return err
	}

	slogx.FromContext(ctx).Info("user verified", slog.String("user_id", user.ID))
	return nil
}

// ResendVerification replaces a pending account's verification token and
// emails the new link. The old link dies with the replaced fingerprint.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if user.Verified {
		return ErrAlreadyVerified
	}

	rawToken, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}
	fingerprint := cryptox.FingerprintToken(rawToken)

	if err := s.Store.Users().SetVerificationToken(ctx, user.ID, fingerprint); err != nil {
		return err
	}

	if err := s.Mailer.SendVerificationEmail(ctx, user.Email, user.Username, s.verifyURL(rawToken)); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}

	slogx.FromContext(ctx).Info("verification email resent", slog.String("user_id", user.ID))
	return nil
}

// Refresh trades a valid refresh token for a brand-new pair. The new pair
// gets its own session id; the old pair is left to expire naturally, and the
// session guards on protected routes keep enforcing blacklist and threshold
// against it in the meantime.
func (s *AuthService) Refresh(ctx context.Context, claims jwtx.Claims) (domain.TokenPair, error) {
	user, err := s.Store.Users().GetUserByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, err
	}

	if !user.CanLogin() {
		return domain.TokenPair{}, ErrAccountNotActive
	}

	return s.Tokens.IssuePair(user)
}

// Logout blacklists the presented session. Both tokens of the pair share the
// sid, so one call kills both.
func (s *AuthService) Logout(ctx context.Context, userID, sid string) error {
	if err := s.Sessions.Blacklist(ctx, userID, sid); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("user logged out", slog.String("user_id", userID))
	return nil
}

// ChangePassword verifies the old password, stores a new hash and revokes
// every token issued up to and including the calling token's iat. The caller
// must log in again; so must every other session of the same user.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string, issuedAt int64) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if !user.CanLogin() {
		return ErrAccountNotActive
	}

	if err := cryptox.VerifyPassword(oldPassword, user.PasswordHash); err != nil {
		return ErrPasswordMismatch
	}

	newHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, newHash); err != nil {
		return err
	}

	if err := s.Sessions.RevokeIssuedAtOrBefore(ctx, userID, issuedAt); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password changed", slog.String("user_id", userID))
	return nil
}
