package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumehq/accountd/internal/account/domain"
	"github.com/lumehq/accountd/internal/account/store/drivers/sqlite"
	"github.com/lumehq/accountd/pkg/cachex/drivers/memory"
	"github.com/lumehq/accountd/pkg/jwtx"
)

type fakeMailer struct {
	mu    sync.Mutex
	sent  []string // raw verification tokens, in send order
	fail  bool
	calls int
}

func (m *fakeMailer) SendVerificationEmail(_ context.Context, _, _, verifyURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail {
		return errors.New("relay refused")
	}
	u, err := url.Parse(verifyURL)
	if err != nil {
		return err
	}
	m.sent = append(m.sent, u.Query().Get("token"))
	return nil
}

func (m *fakeMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

type fixture struct {
	auth   *AuthService
	roles  *RolesService
	users  *UserService
	mailer *fakeMailer
	signer *jwtx.HS256
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	cache := memory.New()
	t.Cleanup(func() { _ = cache.Close() })

	signer, err := jwtx.NewHS256([]byte("test-secret"), "accountd-test")
	require.NoError(t, err)

	mailer := &fakeMailer{}
	roles := &RolesService{Store: s}
	require.NoError(t, roles.Seed(context.Background()))

	auth := &AuthService{
		Store:         s,
		Tokens:        NewTokenService(signer, "accountd-test", 15*time.Minute, 7*24*time.Hour),
		Sessions:      NewSessionService(cache, 7*24*time.Hour),
		Mailer:        mailer,
		VerifyBaseURL: "https://accounts.example.com/verify",
	}

	return &fixture{
		auth:   auth,
		roles:  roles,
		users:  &UserService{Store: s},
		mailer: mailer,
		signer: signer,
	}
}

func register(t *testing.T, f *fixture, email string) domain.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), RegisterParams{
		Username: strings.Split(email, "@")[0],
		Email:    email,
		Password: "Sup3rSecret!",
	})
	require.NoError(t, err)
	return u
}

func registerVerified(t *testing.T, f *fixture, email string) domain.User {
	t.Helper()
	u := register(t, f, email)
	require.NoError(t, f.auth.VerifyEmail(context.Background(), f.mailer.lastToken(t)))
	got, err := f.users.GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	return got
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending account and emails the link", func(t *testing.T) {
		f := newFixture(t)

		u := register(t, f, "alice@example.com")
		require.Equal(t, domain.UserStatusInactive, u.Status)
		require.False(t, u.Verified)
		require.NotNil(t, u.VerificationToken)
		require.Equal(t, 1, f.mailer.calls)

		// The raw token is never stored; only its fingerprint is.
		require.NotEqual(t, f.mailer.lastToken(t), *u.VerificationToken)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		f := newFixture(t)
		register(t, f, "alice@example.com")

		_, err := f.auth.Register(ctx, RegisterParams{
			Username: "alice2",
			Email:    "alice@example.com",
			Password: "An0therSecret!",
		})
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("mail failure fails the registration", func(t *testing.T) {
		f := newFixture(t)
		f.mailer.fail = true

		_, err := f.auth.Register(ctx, RegisterParams{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "Sup3rSecret!",
		})
		require.Error(t, err)
	})
}

func TestVerifyEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("activates the account", func(t *testing.T) {
		f := newFixture(t)
		u := register(t, f, "alice@example.com")

		require.NoError(t, f.auth.VerifyEmail(ctx, f.mailer.lastToken(t)))

		got, err := f.users.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.True(t, got.Verified)
		require.Equal(t, domain.UserStatusActive, got.Status)
		require.Nil(t, got.VerificationToken)
	})

	t.Run("token is single use", func(t *testing.T) {
		f := newFixture(t)
		register(t, f, "alice@example.com")
		token := f.mailer.lastToken(t)

		require.NoError(t, f.auth.VerifyEmail(ctx, token))
		require.ErrorIs(t, f.auth.VerifyEmail(ctx, token), ErrInvalidVerifyToken)
	})

	t.Run("unknown or empty token is rejected", func(t *testing.T) {
		f := newFixture(t)
		require.ErrorIs(t, f.auth.VerifyEmail(ctx, "not-a-real-token"), ErrInvalidVerifyToken)
		require.ErrorIs(t, f.auth.VerifyEmail(ctx, ""), ErrInvalidVerifyToken)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a pair sharing sid and iat", func(t *testing.T) {
		f := newFixture(t)
		registerVerified(t, f, "alice@example.com")

		pair, err := f.auth.Login(ctx, "alice@example.com", "Sup3rSecret!")
		require.NoError(t, err)
		require.Equal(t, "Bearer", pair.TokenType)

		access, err := f.signer.Verify(pair.AccessToken)
		require.NoError(t, err)
		refresh, err := f.signer.Verify(pair.RefreshToken)
		require.NoError(t, err)

		require.NotEmpty(t, access.SID)
		require.Equal(t, access.SID, refresh.SID)
		require.Equal(t, access.IssuedAtUnix(), refresh.IssuedAtUnix())
		require.Equal(t, access.UserID(), refresh.UserID())
		require.True(t, refresh.ExpiresAt.After(access.ExpiresAt.Time))
	})

	t.Run("wrong password and unknown email fail the same way", func(t *testing.T) {
		f := newFixture(t)
		registerVerified(t, f, "alice@example.com")

		_, errWrong := f.auth.Login(ctx, "alice@example.com", "wrong-password")
		_, errGhost := f.auth.Login(ctx, "ghost@example.com", "wrong-password")
		require.ErrorIs(t, errWrong, ErrInvalidCredentials)
		require.ErrorIs(t, errGhost, ErrInvalidCredentials)
	})

	t.Run("unverified accounts cannot log in", func(t *testing.T) {
		f := newFixture(t)
		register(t, f, "alice@example.com")

		_, err := f.auth.Login(ctx, "alice@example.com", "Sup3rSecret!")
		require.ErrorIs(t, err, ErrAccountNotActive)
	})

	t.Run("two logins mint distinct sessions", func(t *testing.T) {
		f := newFixture(t)
		registerVerified(t, f, "alice@example.com")

		p1, err := f.auth.Login(ctx, "alice@example.com", "Sup3rSecret!")
		require.NoError(t, err)
		p2, err := f.auth.Login(ctx, "alice@example.com", "Sup3rSecret!")
		require.NoError(t, err)

		c1, err := f.signer.Verify(p1.AccessToken)
		require.NoError(t, err)
		c2, err := f.signer.Verify(p2.AccessToken)
		require.NoError(t, err)
		require.NotEqual(t, c1.SID, c2.SID)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("kills exactly the presented session", func(t *testing.T) {
		f := newFixture(t)
		registerVerified(t, f, "alice@example.com")

		p1, err := f.auth.Login(ctx, "alice@example.com", "Sup3rSecret!")
		require.NoError(t, err)
		p2, err := f.auth.Login(ctx, "alice@example.com", "Sup3rSecret!")
		require.NoError(t, err)

		c1, err := f.signer.Verify(p1.AccessToken)
		require.NoError(t, err)
		c2, err := f.signer.Verify(p2.AccessToken)
		require.NoError(t, err)

		require.NoError(t, f.auth.Logout(ctx, c1.UserID(), c1.SID))

		err = f.auth.Sessions.CheckRevocation(ctx, c1.UserID(), c1.SID, c1.IssuedAtUnix())
		require.ErrorIs(t, err, ErrTokenBlacklisted)

		// Sibling refresh token shares the sid, so it is dead too.
		r1, err := f.signer.Verify(p1.RefreshToken)
		require.NoError(t, err)
		err = f.auth.Sessions.CheckRevocation(ctx, r1.UserID(), r1.SID, r1.IssuedAtUnix())
		require.ErrorIs(t, err, ErrTokenBlacklisted)

		// The other session survives.
		err = f.auth.Sessions.CheckRevocation(ctx, c2.UserID(), c2.SID, c2.IssuedAtUnix())
		require.NoError(t, err)
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("revokes every session issued up to the calling token", func(t *testing.T) {
		f := newFixture(t)
		u := registerVerified(t, f, "alice@example.com")

		before, err := f.auth.Tokens.IssuePairAt(u, time.Now().Add(-time.Minute))
		require.NoError(t, err)
		current, err := f.auth.Tokens.IssuePairAt(u, time.Now())
		require.NoError(t, err)

		cur, err := f.signer.Verify(current.AccessToken)
		require.NoError(t, err)

		require.NoError(t, f.auth.ChangePassword(ctx, u.ID, "Sup3rSecret!", "N3wSecret!!", cur.IssuedAtUnix()))

		// The calling token itself is revoked (iat == threshold).
		err = f.auth.Sessions.CheckRevocation(ctx, cur.UserID(), cur.SID, cur.IssuedAtUnix())
		require.ErrorIs(t, err, ErrTokenRevoked)

		// So is the older session.
		old, err := f.signer.Verify(before.AccessToken)
		require.NoError(t, err)
		err = f.auth.Sessions.CheckRevocation(ctx, old.UserID(), old.SID, old.IssuedAtUnix())
		require.ErrorIs(t, err, ErrTokenRevoked)

		// Old password is gone, new one works and its tokens pass the guard.
		_, err = f.auth.Login(ctx, "alice@example.com", "Sup3rSecret!")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		fresh, err := f.auth.Login(ctx, "alice@example.com", "N3wSecret!!")
		require.NoError(t, err)
		fc, err := f.signer.Verify(fresh.AccessToken)
		require.NoError(t, err)
		require.NoError(t, f.auth.Sessions.CheckRevocation(ctx, fc.UserID(), fc.SID, fc.IssuedAtUnix()))
	})

	t.Run("wrong old password is rejected", func(t *testing.T) {
		f := newFixture(t)
		u := registerVerified(t, f, "alice@example.com")

		err := f.auth.ChangePassword(ctx, u.ID, "wrong", "N3wSecret!!", time.Now().Unix())
		require.ErrorIs(t, err, ErrPasswordMismatch)
	})

	t.Run("unknown user is rejected", func(t *testing.T) {
		f := newFixture(t)
		err := f.auth.ChangePassword(ctx, "01K0000000000000000000FAKE", "a", "b", time.Now().Unix())
		require.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("mints a new pair with a new session id", func(t *testing.T) {
		f := newFixture(t)
		registerVerified(t, f, "alice@example.com")

		pair, err := f.auth.Login(ctx, "alice@example.com", "Sup3rSecret!")
		require.NoError(t, err)
		claims, err := f.signer.Verify(pair.RefreshToken)
		require.NoError(t, err)

		next, err := f.auth.Refresh(ctx, claims)
		require.NoError(t, err)

		nc, err := f.signer.Verify(next.AccessToken)
		require.NoError(t, err)
		require.Equal(t, claims.UserID(), nc.UserID())
		require.NotEqual(t, claims.SID, nc.SID)
	})

	t.Run("fails for a deleted or pending user", func(t *testing.T) {
		f := newFixture(t)
		u := register(t, f, "alice@example.com")

		// A token for a still-unverified account is refused.
		pair, err := f.auth.Tokens.IssuePair(u)
		require.NoError(t, err)
		claims, err := f.signer.Verify(pair.RefreshToken)
		require.NoError(t, err)

		_, err = f.auth.Refresh(ctx, claims)
		require.ErrorIs(t, err, ErrAccountNotActive)
	})
}

func TestRolesSeed(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)

	// The fixture already seeded; a second call must not duplicate.
	require.NoError(t, f.roles.Seed(ctx))

	all, err := f.roles.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	types := map[domain.RoleType]bool{}
	for _, r := range all {
		types[r.Type] = true
	}
	require.True(t, types[domain.RoleTypeAdmin])
	require.True(t, types[domain.RoleTypeUser])
}
