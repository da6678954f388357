package service

import (
	"context"
	"log/slog"

	"github.com/lumehq/accountd/internal/account/domain"
	"github.com/lumehq/accountd/internal/account/store"
	"github.com/lumehq/accountd/pkg/idx"
	"github.com/lumehq/accountd/pkg/slogx"
)

type RolesService struct {
	Store store.Store
}

// GetRoleByID fetches a role by its ID.
func (s *RolesService) GetRoleByID(ctx context.Context, roleID string) (domain.Role, error) {
	return s.Store.Roles().GetRoleByID(ctx, roleID)
}

// ListAll returns all roles in the system.
func (s *RolesService) ListAll(ctx context.Context) ([]domain.Role, error) {
	return s.Store.Roles().ListAll(ctx)
}

// Seed creates the fixed role set on an empty database. A populated roles
// table makes it a no-op, so startup can call it unconditionally.
func (s *RolesService) Seed(ctx context.Context) error {
	l := slogx.FromContext(ctx)

	empty, err := s.Store.Roles().IsEmpty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, roleType := range []domain.RoleType{domain.RoleTypeAdmin, domain.RoleTypeUser} {
			role := domain.Role{ID: idx.New().String(), Type: roleType}
			if err := tx.Roles().CreateRole(ctx, role); err != nil {
				return err
			}
			l.Info("role seeded",
				slog.String("role_id", role.ID),
				slog.String("role_type", string(roleType)),
			)
		}
		return nil
	})
}
