package service

import (
	"context"
	"errors"
	"time"

	"github.com/laqq/authd/internal/auth/domain"
	"github.com/laqq/authd/internal/auth/store"
	"github.com/laqq/authd/pkg/idx"
	"github.com/laqq/authd/pkg/slogx"
)

// RoleService manages roles and their permission grants. Role names come
// from a closed enum; arbitrary role creation is not a feature of this
// system.
type RoleService struct {
	Store store.Store
}

func (s *RoleService) Create(ctx context.Context, name, description string) (domain.Role, error) {
	if !domain.ValidRoleName(name) {
		return domain.Role{}, &ValidationError{Field: "name", Reason: "unknown role name"}
	}

	now := time.Now().UTC()
	role := domain.Role{
		ID:          idx.New().String(),
		Name:        name,
		Description: description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Store.Roles().CreateRole(ctx, role); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Role{}, &ValidationError{Field: "name", Reason: "role already exists"}
		}
		return domain.Role{}, err
	}
	return role, nil
}

func (s *RoleService) Get(ctx context.Context, id string) (domain.Role, error) {
	role, err := s.Store.Roles().GetRoleByID(ctx, id)
	if err != nil {
		return domain.Role{}, mapStoreNotFound(err)
	}
	return role, nil
}

func (s *RoleService) GetByName(ctx context.Context, name string) (domain.Role, error) {
	role, err := s.Store.Roles().GetRoleByName(ctx, name)
	if err != nil {
		return domain.Role{}, mapStoreNotFound(err)
	}
	return role, nil
}

func (s *RoleService) List(ctx context.Context) ([]domain.Role, error) {
	return s.Store.Roles().ListAll(ctx)
}

// Update changes description and active state. Deactivating a role revokes
// its holders' access at the next permission check without touching the
// grant rows, so reactivation restores everything.
func (s *RoleService) Update(ctx context.Context, id, description string, isActive bool) (domain.Role, error) {
	if err := s.Store.Roles().UpdateRole(ctx, id, description, isActive); err != nil {
		return domain.Role{}, mapStoreNotFound(err)
	}
	return s.Get(ctx, id)
}

// Delete removes a role and, by cascade, its grants. It fails with
// store.ErrProtected while any user still holds the role.
func (s *RoleService) Delete(ctx context.Context, id string) error {
	if err := s.Store.Roles().DeleteRole(ctx, id); err != nil {
		return mapStoreNotFound(err)
	}
	return nil
}

// GrantPermission links a permission to a role. Granting twice is a no-op;
// the bool reports whether this call created the grant.
func (s *RoleService) GrantPermission(ctx context.Context, roleID, permissionID string, grantedBy *string) (bool, error) {
	l := slogx.FromContext(ctx)

	if _, err := s.Store.Roles().GetRoleByID(ctx, roleID); err != nil {
		return false, mapStoreNotFound(err)
	}
	if _, err := s.Store.Permissions().GetPermissionByID(ctx, permissionID); err != nil {
		return false, mapStoreNotFound(err)
	}

	created, err := s.Store.RolePermissions().Grant(ctx, domain.RolePermission{
		ID:           idx.New().String(),
		RoleID:       roleID,
		PermissionID: permissionID,
		GrantedAt:    time.Now().UTC(),
		GrantedBy:    grantedBy,
	})
	if err != nil {
		return false, err
	}
	if created {
		l.Info("permission granted", "role_id", roleID, "permission_id", permissionID)
	}
	return created, nil
}

// GrantMany grants a batch of permissions, returning how many were newly
// created (already-present grants don't count).
func (s *RoleService) GrantMany(ctx context.Context, roleID string, permissionIDs []string, grantedBy *string) (int, error) {
	var created int
	for _, pid := range permissionIDs {
		ok, err := s.GrantPermission(ctx, roleID, pid, grantedBy)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func (s *RoleService) RevokePermission(ctx context.Context, roleID, permissionID string) error {
	if err := s.Store.RolePermissions().Revoke(ctx, roleID, permissionID); err != nil {
		return mapStoreNotFound(err)
	}
	return nil
}

// ListPermissions returns the role's effective (active) permissions.
func (s *RoleService) ListPermissions(ctx context.Context, roleID string) ([]domain.Permission, error) {
	if _, err := s.Store.Roles().GetRoleByID(ctx, roleID); err != nil {
		return nil, mapStoreNotFound(err)
	}
	return s.Store.RolePermissions().ListActivePermissionsForRole(ctx, roleID)
}
