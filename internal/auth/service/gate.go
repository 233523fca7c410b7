package service

import (
	"context"
	"fmt"

	"github.com/laqq/authd/internal/auth/domain"
)

// Operation names an API-level action a caller can attempt. Every operation
// the router registers must have a mapping in operationRules; NewGate fails
// fast at startup on any that does not, so an unmapped endpoint is a boot
// error rather than a silent deny in production.
type Operation string

const (
	OpUsersList          Operation = "users.list"
	OpUsersRetrieve      Operation = "users.retrieve"
	OpUsersCreate        Operation = "users.create"
	OpUsersUpdate        Operation = "users.update"
	OpUsersDestroy       Operation = "users.destroy"
	OpUsersResetPassword Operation = "users.reset_password"
	OpUsersToggleActive  Operation = "users.toggle_active"

	// Self-service operations. The owner check passes without any grant;
	// admins reach other users' records through the users module instead.
	OpProfileRetrieve  Operation = "profile.retrieve"
	OpProfileUpdate    Operation = "profile.update"
	OpChangePassword   Operation = "profile.change_password"
	OpTwoFactorEnroll  Operation = "twofactor.enroll"
	OpTwoFactorVerify  Operation = "twofactor.verify"
	OpTwoFactorDisable Operation = "twofactor.disable"

	OpRolesList        Operation = "roles.list"
	OpRolesRetrieve    Operation = "roles.retrieve"
	OpRolesCreate      Operation = "roles.create"
	OpRolesUpdate      Operation = "roles.update"
	OpRolesDestroy     Operation = "roles.destroy"
	OpRolesGrant       Operation = "roles.grant_permission"
	OpRolesRevoke      Operation = "roles.revoke_permission"
	OpPermissionsList  Operation = "permissions.list"
)

type gateRule struct {
	Module    domain.Module
	Action    domain.Action
	AllowSelf bool
}

// operationRules is the declared operation -> (module, action) table. Role
// and permission administration rides on the users module: whoever manages
// accounts manages what those accounts can do.
var operationRules = map[Operation]gateRule{
	OpUsersList:          {Module: domain.ModuleUsers, Action: domain.ActionRead},
	OpUsersRetrieve:      {Module: domain.ModuleUsers, Action: domain.ActionRead, AllowSelf: true},
	OpUsersCreate:        {Module: domain.ModuleUsers, Action: domain.ActionCreate},
	OpUsersUpdate:        {Module: domain.ModuleUsers, Action: domain.ActionUpdate},
	OpUsersDestroy:       {Module: domain.ModuleUsers, Action: domain.ActionDelete},
	OpUsersResetPassword: {Module: domain.ModuleUsers, Action: domain.ActionUpdate},
	OpUsersToggleActive:  {Module: domain.ModuleUsers, Action: domain.ActionUpdate},

	OpProfileRetrieve:  {Module: domain.ModuleUsers, Action: domain.ActionRead, AllowSelf: true},
	OpProfileUpdate:    {Module: domain.ModuleUsers, Action: domain.ActionUpdate, AllowSelf: true},
	OpChangePassword:   {Module: domain.ModuleUsers, Action: domain.ActionUpdate, AllowSelf: true},
	OpTwoFactorEnroll:  {Module: domain.ModuleUsers, Action: domain.ActionUpdate, AllowSelf: true},
	OpTwoFactorVerify:  {Module: domain.ModuleUsers, Action: domain.ActionUpdate, AllowSelf: true},
	OpTwoFactorDisable: {Module: domain.ModuleUsers, Action: domain.ActionUpdate, AllowSelf: true},

	OpRolesList:       {Module: domain.ModuleUsers, Action: domain.ActionRead},
	OpRolesRetrieve:   {Module: domain.ModuleUsers, Action: domain.ActionRead},
	OpRolesCreate:     {Module: domain.ModuleUsers, Action: domain.ActionCreate},
	OpRolesUpdate:     {Module: domain.ModuleUsers, Action: domain.ActionUpdate},
	OpRolesDestroy:    {Module: domain.ModuleUsers, Action: domain.ActionDelete},
	OpRolesGrant:      {Module: domain.ModuleUsers, Action: domain.ActionUpdate},
	OpRolesRevoke:     {Module: domain.ModuleUsers, Action: domain.ActionUpdate},
	OpPermissionsList: {Module: domain.ModuleUsers, Action: domain.ActionRead},
}

// Gate is the single authorization chokepoint. Superuser bypass lives here
// and only here; services below it never special-case superusers.
type Gate struct {
	RBAC  *RBACService
	rules map[Operation]gateRule
}

// NewGate validates that every registered operation has a rule. Passing an
// operation with no (module, action) mapping is a declaration error and
// aborts startup.
func NewGate(rbac *RBACService, ops ...Operation) (*Gate, error) {
	rules := make(map[Operation]gateRule, len(ops))
	for _, op := range ops {
		rule, ok := operationRules[op]
		if !ok {
			return nil, fmt.Errorf("gate: operation %q has no module/action mapping", op)
		}
		rules[op] = rule
	}
	return &Gate{RBAC: rbac, rules: rules}, nil
}

// Authorize decides whether caller may perform op. ownerID identifies the
// record being touched when the operation supports self-service; pass ""
// for collection-level operations.
func (g *Gate) Authorize(ctx context.Context, caller domain.User, op Operation, ownerID string) error {
	rule, ok := g.rules[op]
	if !ok {
		// Operations are validated at startup, so this is a programming
		// error. Deny closed regardless.
		return fmt.Errorf("gate: operation %q not registered: %w", op, ErrPermissionDenied)
	}

	if !caller.IsActive {
		return ErrPermissionDenied
	}

	if caller.IsSuperuser {
		return nil
	}

	if rule.AllowSelf && ownerID != "" && ownerID == caller.ID {
		return nil
	}

	allowed, err := g.RBAC.HasPermission(ctx, caller, rule.Module, rule.Action)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrPermissionDenied
	}
	return nil
}
