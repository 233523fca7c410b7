package store

import (
	"context"
	"errors"
	"time"

	"github.com/laqq/authd/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrAmbiguous is returned when a lookup that must resolve to exactly one
	// row matches more than one (e.g. two users whose emails differ only by
	// case in data that predates the case-insensitive unique index).
	ErrAmbiguous = errors.New("store: ambiguous match")

	// ErrProtected is returned when a delete is blocked by rows that still
	// reference the target (e.g. deleting a role that users are assigned to).
	ErrProtected = errors.New("store: protected by references")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable. We can change having the sub-repos as methods later but we do it
// now so we can have more control and actively stop people from accidently
// doing transactions within transactions.
type Store interface {
	Users() Users
	Roles() Roles
	Permissions() Permissions
	RolePermissions() RolePermissions
	TOTPDevices() TOTPDevices

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., confirming
	// a TOTP device and flipping the user's two_factor_enabled flag).
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// This is the recommended way to handle transactions as it automatically
	// handles commit/rollback logic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail resolves a user by email, case-insensitively. Returns
	// ErrAmbiguous when more than one row matches.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateProfile mutates first_name, last_name and phone and bumps updated_at.
	UpdateProfile(ctx context.Context, userID, firstName, lastName, phone string) error

	// UpdateRole assigns (or clears, with nil) the user's role.
	UpdateRole(ctx context.Context, userID string, roleID *string) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// UpdateLastLogin records a successful authentication.
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	// SetActive flips the is_active flag.
	SetActive(ctx context.Context, userID string, active bool) error

	// SetTwoFactorEnabled flips the two_factor_enabled flag.
	SetTwoFactorEnabled(ctx context.Context, userID string, enabled bool) error

	// ListUsers returns all users ordered by creation date (newest first).
	ListUsers(ctx context.Context) ([]domain.User, error)

	// DeleteUser cascades to totp_devices (per schema).
	DeleteUser(ctx context.Context, userID string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type Roles interface {
	// GetRoleByID fetches a role by its ID.
	GetRoleByID(ctx context.Context, id string) (domain.Role, error)

	// GetRoleByName fetches a role by its name (for provisioning).
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)

	// ListAll returns all roles in the system.
	ListAll(ctx context.Context) ([]domain.Role, error)

	// CreateRole inserts a new role (id is ULID).
	CreateRole(ctx context.Context, r domain.Role) error

	// UpdateRole modifies description and is_active.
	UpdateRole(ctx context.Context, roleID, description string, isActive bool) error

	// DeleteRole removes a role. Returns ErrProtected while users still
	// reference it; grants cascade away with it.
	DeleteRole(ctx context.Context, roleID string) error
}

type Permissions interface {
	// GetPermissionByID fetches a permission by its ID.
	GetPermissionByID(ctx context.Context, id string) (domain.Permission, error)

	// GetPermissionByCodename fetches a permission by its codename
	// (e.g. "products_read").
	GetPermissionByCodename(ctx context.Context, codename string) (domain.Permission, error)

	// ListAll returns every permission ordered by module then action.
	ListAll(ctx context.Context) ([]domain.Permission, error)

	// ListActive returns active permissions only, same order.
	ListActive(ctx context.Context) ([]domain.Permission, error)

	// CreatePermission inserts a new permission (id is ULID).
	CreatePermission(ctx context.Context, p domain.Permission) error

	// SetActive flips the is_active flag.
	SetActive(ctx context.Context, permissionID string, active bool) error
}

type RolePermissions interface {
	// Grant links a permission to a role. Granting an existing pair is a
	// no-op; the bool reports whether a new row was created.
	Grant(ctx context.Context, rp domain.RolePermission) (bool, error)

	// Revoke removes the link. Returns ErrNotFound when no such grant exists.
	Revoke(ctx context.Context, roleID, permissionID string) error

	// ListByRole returns the grant rows for a role.
	ListByRole(ctx context.Context, roleID string) ([]domain.RolePermission, error)

	// ListActivePermissionsForRole returns the active permissions granted to
	// an active role, ordered by module then action.
	ListActivePermissionsForRole(ctx context.Context, roleID string) ([]domain.Permission, error)

	// HasActivePermission reports whether the role holds an active grant for
	// (module, action), with both the role and the permission active.
	HasActivePermission(ctx context.Context, roleID string, module domain.Module, action domain.Action) (bool, error)
}

type TOTPDevices interface {
	// GetOrCreateDevice returns the (user_id, name) device, inserting it
	// first if absent. The bool reports whether a new row was created.
	GetOrCreateDevice(ctx context.Context, d domain.TOTPDevice) (domain.TOTPDevice, bool, error)

	// GetDeviceByUserAndName fetches a single device.
	GetDeviceByUserAndName(ctx context.Context, userID, name string) (domain.TOTPDevice, error)

	// GetConfirmedDevice returns the user's confirmed device, ErrNotFound if
	// the user has none.
	GetConfirmedDevice(ctx context.Context, userID string) (domain.TOTPDevice, error)

	// ListDevicesByUser returns all of a user's devices.
	ListDevicesByUser(ctx context.Context, userID string) ([]domain.TOTPDevice, error)

	// ConfirmDevice marks a device as confirmed and bumps updated_at.
	ConfirmDevice(ctx context.Context, deviceID string) error

	// DeleteDevicesByUser removes every device the user has, confirmed or
	// not. Returns the number of rows deleted.
	DeleteDevicesByUser(ctx context.Context, userID string) (int64, error)

	// DeleteUnconfirmedBefore prunes unconfirmed devices created before the
	// cutoff (housekeeping for abandoned enrollments).
	DeleteUnconfirmedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
