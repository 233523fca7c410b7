package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/laqq/authd/internal/auth/domain"
	"github.com/laqq/authd/internal/auth/store"
	"github.com/laqq/authd/pkg/cryptox"
	"github.com/laqq/authd/pkg/idx"
	"github.com/laqq/authd/pkg/slogx"
)

// ProvisionService seeds the permission matrix, the default roles with
// their grants, and (on an empty database) the first superuser. Every step
// is idempotent so it runs unconditionally at startup.
type ProvisionService struct {
	Store store.Store
}

// backofficeGrants is the default permission set for the backoffice role:
// sell and look, don't administer.
var backofficeGrants = []string{
	domain.Codename(domain.ModuleProducts, domain.ActionRead),
	domain.Codename(domain.ModuleOrders, domain.ActionCreate),
	domain.Codename(domain.ModuleOrders, domain.ActionRead),
	domain.Codename(domain.ModuleClients, domain.ActionRead),
}

// Run executes the full provisioning pass.
func (s *ProvisionService) Run(ctx context.Context, superuserEmail, superuserPassword string) error {
	if err := s.EnsurePermissionMatrix(ctx); err != nil {
		return fmt.Errorf("provision permissions: %w", err)
	}
	if err := s.EnsureDefaultRoles(ctx); err != nil {
		return fmt.Errorf("provision roles: %w", err)
	}
	if superuserEmail != "" {
		if err := s.EnsureSuperuser(ctx, superuserEmail, superuserPassword); err != nil {
			return fmt.Errorf("provision superuser: %w", err)
		}
	}
	s.verify(ctx)
	return nil
}

// EnsurePermissionMatrix get-or-creates every module x action permission.
func (s *ProvisionService) EnsurePermissionMatrix(ctx context.Context) error {
	l := slogx.FromContext(ctx)

	var created int
	for _, module := range domain.Modules {
		for _, action := range domain.Actions {
			codename := domain.Codename(module, action)

			_, err := s.Store.Permissions().GetPermissionByCodename(ctx, codename)
			if err == nil {
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}

			perm := domain.Permission{
				ID:          idx.New().String(),
				Module:      module,
				Action:      action,
				Codename:    codename,
				Description: fmt.Sprintf("Allows %s on %s", action, domain.ModuleLabels[module]),
				IsActive:    true,
				CreatedAt:   time.Now().UTC(),
			}
			if err := s.Store.Permissions().CreatePermission(ctx, perm); err != nil {
				// A concurrent provisioner may have won the insert.
				if errors.Is(err, store.ErrAlreadyExists) {
					continue
				}
				return err
			}
			created++
		}
	}

	l.Info("permission matrix ensured", "created", created)
	return nil
}

// EnsureDefaultRoles creates the administrador and backoffice roles and
// their grants. Administrador holds the full matrix; backoffice holds the
// read/sell subset. Grants that already exist are left untouched.
func (s *ProvisionService) EnsureDefaultRoles(ctx context.Context) error {
	l := slogx.FromContext(ctx)

	admin, err := s.ensureRole(ctx, domain.RoleAdministrador, "Full access to every module")
	if err != nil {
		return err
	}
	back, err := s.ensureRole(ctx, domain.RoleBackoffice, "Day-to-day sales operations")
	if err != nil {
		return err
	}

	all, err := s.Store.Permissions().ListAll(ctx)
	if err != nil {
		return err
	}
	byCodename := make(map[string]domain.Permission, len(all))
	for _, p := range all {
		byCodename[p.Codename] = p
	}

	var granted int
	for _, p := range all {
		n, err := s.ensureGrant(ctx, admin.ID, p.ID)
		if err != nil {
			return err
		}
		granted += n
	}
	for _, codename := range backofficeGrants {
		p, ok := byCodename[codename]
		if !ok {
			return fmt.Errorf("default grant references unknown permission %q", codename)
		}
		n, err := s.ensureGrant(ctx, back.ID, p.ID)
		if err != nil {
			return err
		}
		granted += n
	}

	l.Info("default roles ensured", "new_grants", granted)
	return nil
}

// EnsureSuperuser creates the bootstrap administrator when the user table
// is empty. On any later start it is a no-op, so rotating the configured
// password does not touch an existing account.
func (s *ProvisionService) EnsureSuperuser(ctx context.Context, email, password string) error {
	l := slogx.FromContext(ctx)

	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}
	if password == "" {
		return errors.New("bootstrap superuser requires a password")
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return err
	}

	admin, err := s.Store.Roles().GetRoleByName(ctx, domain.RoleAdministrador)
	if err != nil {
		return err
	}
	roleID := admin.ID

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		RoleID:       &roleID,
		IsActive:     true,
		IsStaff:      true,
		IsSuperuser:  true,
		IsVerified:   true,
		DateJoined:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		return err
	}

	l.Info("bootstrap superuser created", "user_id", user.ID, "email", email)
	return nil
}

func (s *ProvisionService) ensureRole(ctx context.Context, name, description string) (domain.Role, error) {
	role, err := s.Store.Roles().GetRoleByName(ctx, name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Role{}, err
	}

	now := time.Now().UTC()
	role = domain.Role{
		ID:          idx.New().String(),
		Name:        name,
		Description: description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.Roles().CreateRole(ctx, role); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return s.Store.Roles().GetRoleByName(ctx, name)
		}
		return domain.Role{}, err
	}
	return role, nil
}

func (s *ProvisionService) ensureGrant(ctx context.Context, roleID, permissionID string) (int, error) {
	created, err := s.Store.RolePermissions().Grant(ctx, domain.RolePermission{
		ID:           idx.New().String(),
		RoleID:       roleID,
		PermissionID: permissionID,
		GrantedAt:    time.Now().UTC(),
	})
	if err != nil {
		return 0, err
	}
	if created {
		return 1, nil
	}
	return 0, nil
}

// verify logs any default role missing one of its expected grants. It never
// fails startup; a missing grant is an operator warning, not an outage.
func (s *ProvisionService) verify(ctx context.Context) {
	l := slogx.FromContext(ctx)

	expected := map[string][]string{
		domain.RoleAdministrador: allCodenames(),
		domain.RoleBackoffice:    backofficeGrants,
	}

	for roleName, codenames := range expected {
		role, err := s.Store.Roles().GetRoleByName(ctx, roleName)
		if err != nil {
			l.Warn("verification: role missing", "role", roleName, "err", err)
			continue
		}
		perms, err := s.Store.RolePermissions().ListActivePermissionsForRole(ctx, role.ID)
		if err != nil {
			l.Warn("verification: listing grants failed", "role", roleName, "err", err)
			continue
		}
		have := make(map[string]struct{}, len(perms))
		for _, p := range perms {
			have[p.Codename] = struct{}{}
		}
		for _, codename := range codenames {
			if _, ok := have[codename]; !ok {
				l.Warn("verification: missing grant", "role", roleName, "permission", codename)
			}
		}
	}
}

func allCodenames() []string {
	out := make([]string, 0, len(domain.Modules)*len(domain.Actions))
	for _, m := range domain.Modules {
		for _, a := range domain.Actions {
			out = append(out, domain.Codename(m, a))
		}
	}
	return out
}
