package domain

import (
	"strings"
	"time"
)

type User struct {
	ID           string
	Email        string // unique, compared case-insensitively
	PasswordHash string // argon2 encoded
	FirstName    string
	LastName     string
	Phone        string
	RoleID       *string // Foreign key to roles table (nullable)

	IsActive         bool
	IsStaff          bool
	IsSuperuser      bool
	IsVerified       bool
	TwoFactorEnabled bool

	DateJoined time.Time
	LastLogin  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FullName joins first and last name, trimming when either is empty.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasRole reports whether the user has a role assigned.
func (u User) HasRole() bool {
	return u.RoleID != nil && *u.RoleID != ""
}
