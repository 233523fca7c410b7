package service

import (
	"context"

	"github.com/laqq/authd/internal/auth/domain"
	"github.com/laqq/authd/internal/auth/store"
)

// RBACService answers "may this user perform this action on this module".
// Checks are live against the store so revocations and role deactivation
// take effect immediately, not at next token issuance.
type RBACService struct {
	Store store.Store
}

// HasPermission is the core predicate. Superusers hold everything; users
// without a role hold nothing; everyone else is answered by a single EXISTS
// query over the grant join (role active, permission active).
func (s *RBACService) HasPermission(ctx context.Context, user domain.User, module domain.Module, action domain.Action) (bool, error) {
	if user.IsSuperuser {
		return true, nil
	}
	if !user.HasRole() {
		return false, nil
	}
	return s.Store.RolePermissions().HasActivePermission(ctx, *user.RoleID, module, action)
}

// GetPermissions returns the user's effective permission set: all active
// permissions for superusers, nothing for roleless users, otherwise the
// active grants through the user's active role.
func (s *RBACService) GetPermissions(ctx context.Context, user domain.User) ([]domain.Permission, error) {
	if user.IsSuperuser {
		return s.Store.Permissions().ListActive(ctx)
	}
	if !user.HasRole() {
		return nil, nil
	}
	return s.Store.RolePermissions().ListActivePermissionsForRole(ctx, *user.RoleID)
}
