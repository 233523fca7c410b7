package domain

import "time"

// Role names form a closed set. New roles are added here, not invented at
// runtime.
const (
	RoleAdministrador = "administrador"
	RoleBackoffice    = "backoffice"
)

// RoleNames lists every valid role name.
var RoleNames = []string{RoleAdministrador, RoleBackoffice}

// ValidRoleName reports whether name is one of the declared role names.
func ValidRoleName(name string) bool {
	for _, n := range RoleNames {
		if n == name {
			return true
		}
	}
	return false
}

type Role struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
