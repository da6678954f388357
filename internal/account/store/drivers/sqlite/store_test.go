package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumehq/accountd/internal/account/domain"
	"github.com/lumehq/accountd/internal/account/store"
	"github.com/lumehq/accountd/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedRole(t *testing.T, s *Store, roleType domain.RoleType) domain.Role {
	t.Helper()

	role := domain.Role{ID: idx.New().String(), Type: roleType}
	require.NoError(t, s.Roles().CreateRole(context.Background(), role))

	got, err := s.Roles().GetRoleByType(context.Background(), roleType)
	require.NoError(t, err)
	return got
}

func newUser(role domain.Role) domain.User {
	fp := "fingerprint-" + idx.New().String()
	return domain.User{
		ID:                idx.New().String(),
		Username:          "alice",
		Email:             "alice@example.com",
		PasswordHash:      "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		RoleID:            role.ID,
		Status:            domain.UserStatusInactive,
		Verified:          false,
		VerificationToken: &fp,
	}
}

func TestUsersRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("create and fetch round trip", func(t *testing.T) {
		s := newTestStore(t)
		role := seedRole(t, s, domain.RoleTypeUser)
		u := newUser(role)

		require.NoError(t, s.Users().CreateUser(ctx, u))

		got, err := s.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
		require.Equal(t, u.Username, got.Username)
		require.Equal(t, domain.UserStatusInactive, got.Status)
		require.False(t, got.Verified)
		require.NotNil(t, got.VerificationToken)
		require.Equal(t, *u.VerificationToken, *got.VerificationToken)
		require.Nil(t, got.Phone)
		require.False(t, got.CreatedAt.IsZero())

		byID, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, got.Email, byID.Email)
	})

	t.Run("duplicate email maps to already exists", func(t *testing.T) {
		s := newTestStore(t)
		role := seedRole(t, s, domain.RoleTypeUser)
		u := newUser(role)

		require.NoError(t, s.Users().CreateUser(ctx, u))

		dup := newUser(role)
		dup.ID = idx.New().String()
		err := s.Users().CreateUser(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("duplicate phone maps to already exists", func(t *testing.T) {
		s := newTestStore(t)
		role := seedRole(t, s, domain.RoleTypeUser)

		phone := "+61400000000"
		u := newUser(role)
		u.Phone = &phone
		require.NoError(t, s.Users().CreateUser(ctx, u))

		dup := newUser(role)
		dup.ID = idx.New().String()
		dup.Email = "bob@example.com"
		dup.Phone = &phone
		require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("missing users surface not found", func(t *testing.T) {
		s := newTestStore(t)

		_, err := s.Users().GetUserByEmail(ctx, "ghost@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.Users().GetUserByID(ctx, idx.New().String())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("verification token lookup skips verified accounts", func(t *testing.T) {
		s := newTestStore(t)
		role := seedRole(t, s, domain.RoleTypeUser)
		u := newUser(role)
		require.NoError(t, s.Users().CreateUser(ctx, u))

		got, err := s.Users().GetInactiveUserByVerificationToken(ctx, *u.VerificationToken)
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)

		require.NoError(t, s.Users().MarkUserVerified(ctx, u.ID))

		_, err = s.Users().GetInactiveUserByVerificationToken(ctx, *u.VerificationToken)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("set verification token replaces the old one", func(t *testing.T) {
		s := newTestStore(t)
		role := seedRole(t, s, domain.RoleTypeUser)
		u := newUser(role)
		require.NoError(t, s.Users().CreateUser(ctx, u))

		require.NoError(t, s.Users().SetVerificationToken(ctx, u.ID, "fingerprint-replacement"))

		_, err := s.Users().GetInactiveUserByVerificationToken(ctx, *u.VerificationToken)
		require.ErrorIs(t, err, store.ErrNotFound)

		got, err := s.Users().GetInactiveUserByVerificationToken(ctx, "fingerprint-replacement")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)

		require.ErrorIs(t, s.Users().SetVerificationToken(ctx, idx.New().String(), "x"), store.ErrNotFound)
	})

	t.Run("mark verified activates and clears the token", func(t *testing.T) {
		s := newTestStore(t)
		role := seedRole(t, s, domain.RoleTypeUser)
		u := newUser(role)
		require.NoError(t, s.Users().CreateUser(ctx, u))

		require.NoError(t, s.Users().MarkUserVerified(ctx, u.ID))

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.True(t, got.Verified)
		require.Equal(t, domain.UserStatusActive, got.Status)
		require.Nil(t, got.VerificationToken)

		// Second attempt hits zero rows.
		require.ErrorIs(t, s.Users().MarkUserVerified(ctx, u.ID), store.ErrNotFound)
	})

	t.Run("update password hash", func(t *testing.T) {
		s := newTestStore(t)
		role := seedRole(t, s, domain.RoleTypeUser)
		u := newUser(role)
		require.NoError(t, s.Users().CreateUser(ctx, u))

		require.NoError(t, s.Users().UpdatePasswordHash(ctx, u.ID, "new-hash"))

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "new-hash", got.PasswordHash)

		require.ErrorIs(t, s.Users().UpdatePasswordHash(ctx, idx.New().String(), "x"), store.ErrNotFound)
	})

	t.Run("is empty", func(t *testing.T) {
		s := newTestStore(t)
		empty, err := s.Users().IsEmpty(ctx)
		require.NoError(t, err)
		require.True(t, empty)

		role := seedRole(t, s, domain.RoleTypeUser)
		require.NoError(t, s.Users().CreateUser(ctx, newUser(role)))

		empty, err = s.Users().IsEmpty(ctx)
		require.NoError(t, err)
		require.False(t, empty)
	})
}

func TestRolesRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("create fetch and list", func(t *testing.T) {
		s := newTestStore(t)

		empty, err := s.Roles().IsEmpty(ctx)
		require.NoError(t, err)
		require.True(t, empty)

		admin := seedRole(t, s, domain.RoleTypeAdmin)
		user := seedRole(t, s, domain.RoleTypeUser)

		got, err := s.Roles().GetRoleByID(ctx, admin.ID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleTypeAdmin, got.Type)

		all, err := s.Roles().ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		_ = user
	})

	t.Run("duplicate type maps to already exists", func(t *testing.T) {
		s := newTestStore(t)
		seedRole(t, s, domain.RoleTypeUser)

		err := s.Roles().CreateRole(ctx, domain.Role{ID: idx.New().String(), Type: domain.RoleTypeUser})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("missing role surfaces not found", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.Roles().GetRoleByType(ctx, domain.RoleTypeAdmin)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit persists", func(t *testing.T) {
		s := newTestStore(t)
		role := seedRole(t, s, domain.RoleTypeUser)
		u := newUser(role)

		err := s.WithTx(ctx, func(tx store.Tx) error {
			return tx.Users().CreateUser(ctx, u)
		})
		require.NoError(t, err)

		_, err = s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
	})

	t.Run("error rolls back", func(t *testing.T) {
		s := newTestStore(t)
		role := seedRole(t, s, domain.RoleTypeUser)
		u := newUser(role)

		err := s.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Users().CreateUser(ctx, u); err != nil {
				return err
			}
			return context.Canceled
		})
		require.Error(t, err)

		_, err = s.Users().GetUserByID(ctx, u.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
