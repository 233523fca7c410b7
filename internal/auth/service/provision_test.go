package service

import (
	"context"
	"testing"

	"github.com/laqq/authd/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestProvisionRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	prov := &ProvisionService{Store: st}

	require.NoError(t, prov.Run(ctx, "root@example.com", "bootstrap-password"))

	perms, err := st.Permissions().ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, perms, 16)

	admin, err := st.Roles().GetRoleByName(ctx, domain.RoleAdministrador)
	require.NoError(t, err)
	back, err := st.Roles().GetRoleByName(ctx, domain.RoleBackoffice)
	require.NoError(t, err)

	adminGrants, err := st.RolePermissions().ListByRole(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, adminGrants, 16)

	backGrants, err := st.RolePermissions().ListActivePermissionsForRole(ctx, back.ID)
	require.NoError(t, err)
	require.Len(t, backGrants, 4)

	users, err := st.Users().ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.True(t, users[0].IsSuperuser)
	require.True(t, users[0].IsStaff)
	require.True(t, users[0].IsActive)
	require.Equal(t, &admin.ID, users[0].RoleID)

	// Second run changes nothing: same counts, same single user.
	require.NoError(t, prov.Run(ctx, "root@example.com", "different-password"))

	perms, err = st.Permissions().ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, perms, 16)

	adminGrants, err = st.RolePermissions().ListByRole(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, adminGrants, 16)

	users, err = st.Users().ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestEnsureSuperuserSkipsNonEmptyDatabase(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	provisionDefaults(t, st)
	prov := &ProvisionService{Store: st}

	seedUser(t, st, "existing@example.com", "password-123", userOpts{})

	require.NoError(t, prov.EnsureSuperuser(ctx, "root@example.com", "bootstrap-password"))

	users, err := st.Users().ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "existing@example.com", users[0].Email)
}

func TestBackofficeGrantsEndToEnd(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	prov := &ProvisionService{Store: st}
	require.NoError(t, prov.Run(ctx, "", ""))

	rbac := &RBACService{Store: st}
	backoffice := roleIDByName(t, st, domain.RoleBackoffice)
	seller := seedUser(t, st, "seller@example.com", "password-123", userOpts{roleID: backoffice})

	allowed := map[string]bool{
		"products_read": true,
		"orders_create": true,
		"orders_read":   true,
		"clients_read":  true,
	}
	for _, module := range domain.Modules {
		for _, action := range domain.Actions {
			ok, err := rbac.HasPermission(ctx, seller, module, action)
			require.NoError(t, err)
			require.Equal(t, allowed[domain.Codename(module, action)], ok,
				"unexpected answer for %s", domain.Codename(module, action))
		}
	}
}
