package service

import (
	"context"
	"testing"

	"github.com/laqq/authd/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestNewGateRejectsUnmappedOperation(t *testing.T) {
	st := newTestStore(t)
	rbac := &RBACService{Store: st}

	_, err := NewGate(rbac, OpUsersList, Operation("orders.teleport"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "orders.teleport")
}

func TestGateAuthorize(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	provisionDefaults(t, st)
	rbac := &RBACService{Store: st}

	gate, err := NewGate(rbac,
		OpUsersList, OpUsersRetrieve, OpUsersCreate,
		OpProfileUpdate, OpRolesGrant,
	)
	require.NoError(t, err)

	admin := roleIDByName(t, st, domain.RoleAdministrador)
	backoffice := roleIDByName(t, st, domain.RoleBackoffice)

	manager := seedUser(t, st, "manager@example.com", "password-123", userOpts{roleID: admin})
	seller := seedUser(t, st, "seller@example.com", "password-123", userOpts{roleID: backoffice})
	root := seedUser(t, st, "root@example.com", "password-123", userOpts{superuser: true})
	suspended := seedUser(t, st, "gone@example.com", "password-123", userOpts{roleID: admin, inactive: true})

	t.Run("administrador may manage users", func(t *testing.T) {
		require.NoError(t, gate.Authorize(ctx, manager, OpUsersList, ""))
		require.NoError(t, gate.Authorize(ctx, manager, OpUsersCreate, ""))
		require.NoError(t, gate.Authorize(ctx, manager, OpRolesGrant, ""))
	})

	t.Run("backoffice may not manage users", func(t *testing.T) {
		require.ErrorIs(t, gate.Authorize(ctx, seller, OpUsersList, ""), ErrPermissionDenied)
		require.ErrorIs(t, gate.Authorize(ctx, seller, OpUsersCreate, ""), ErrPermissionDenied)
	})

	t.Run("self-service passes without any grant", func(t *testing.T) {
		require.NoError(t, gate.Authorize(ctx, seller, OpUsersRetrieve, seller.ID))
		require.NoError(t, gate.Authorize(ctx, seller, OpProfileUpdate, seller.ID))
	})

	t.Run("self-service does not extend to other records", func(t *testing.T) {
		require.ErrorIs(t, gate.Authorize(ctx, seller, OpUsersRetrieve, manager.ID), ErrPermissionDenied)
	})

	t.Run("superuser bypasses every rule", func(t *testing.T) {
		require.NoError(t, gate.Authorize(ctx, root, OpUsersList, ""))
		require.NoError(t, gate.Authorize(ctx, root, OpRolesGrant, ""))
	})

	t.Run("inactive caller is denied regardless of role", func(t *testing.T) {
		require.ErrorIs(t, gate.Authorize(ctx, suspended, OpUsersList, ""), ErrPermissionDenied)
	})

	t.Run("unregistered operation denies closed", func(t *testing.T) {
		err := gate.Authorize(ctx, root, OpUsersDestroy, "")
		require.ErrorIs(t, err, ErrPermissionDenied)
	})
}
