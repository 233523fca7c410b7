package domain

import "time"

// Module is a coarse resource category permissions are scoped under.
type Module string

// Action is the CRUD unit permissions are granted over.
type Action string

const (
	ModuleUsers    Module = "users"
	ModuleProducts Module = "products"
	ModuleOrders   Module = "orders"
	ModuleClients  Module = "clients"

	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Modules and Actions enumerate the closed sets. Their product is the full
// permission matrix the provisioner seeds.
var (
	Modules = []Module{ModuleUsers, ModuleProducts, ModuleOrders, ModuleClients}
	Actions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}
)

// ModuleLabels carry the human descriptions used when seeding permissions.
var ModuleLabels = map[Module]string{
	ModuleUsers:    "user management",
	ModuleProducts: "product management",
	ModuleOrders:   "order administration",
	ModuleClients:  "client records",
}

func (m Module) Valid() bool {
	for _, known := range Modules {
		if m == known {
			return true
		}
	}
	return false
}

func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// Codename derives the canonical permission identifier for a (module, action)
// pair, e.g. "orders_delete". It is computed once at creation and never
// changes afterwards.
func Codename(m Module, a Action) string {
	return string(m) + "_" + string(a)
}

type Permission struct {
	ID          string
	Module      Module
	Action      Action
	Codename    string
	Description string
	IsActive    bool
	CreatedAt   time.Time
}

// RolePermission is the grant joining a role to a permission. GrantedBy is
// nullable so the row survives deletion of the granting actor.
type RolePermission struct {
	ID           string
	RoleID       string
	PermissionID string
	GrantedAt    time.Time
	GrantedBy    *string
}
