// Package authapi holds the wire types of the authentication service: the
// request and response bodies handlers encode and clients decode. Keeping
// them in one importable package means Go consumers never re-declare the
// contract by hand.
package authapi

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	// Error is the machine-readable error code (e.g. "invalid_credentials")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// ValidationErrorResponse is returned when request validation fails. Details
// maps field names to what was wrong with them.
type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// SecondFactorRequiredResponse is the recoverable login outcome: the
// password was correct but the account demands an OTP. Clients resubmit the
// same credentials with the otp field filled in.
type SecondFactorRequiredResponse struct {
	Error                string `json:"error"`
	ErrorDescription     string `json:"error_description"`
	RequiresSecondFactor bool   `json:"requires_second_factor"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp,omitempty"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	User         User   `json:"user"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// User is the public projection of an account. The password hash never
// leaves the service.
type User struct {
	ID               string  `json:"id"`
	Email            string  `json:"email"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	Phone            string  `json:"phone,omitempty"`
	RoleID           *string `json:"role_id"`
	IsActive         bool    `json:"is_active"`
	IsStaff          bool    `json:"is_staff"`
	IsSuperuser      bool    `json:"is_superuser"`
	TwoFactorEnabled bool    `json:"two_factor_enabled"`
	DateJoined       string  `json:"date_joined"`
	LastLogin        *string `json:"last_login"`

	// Permissions lists the effective grant codenames resolved through the
	// user's role (the full matrix for superusers). Single-user payloads
	// carry it; list endpoints leave it empty.
	Permissions []string `json:"permissions,omitempty"`
}

type CreateUserRequest struct {
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"password_confirm"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Phone           string  `json:"phone"`
	RoleID          *string `json:"role_id"`
	IsStaff         bool    `json:"is_staff"`
}

type UpdateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	RoleID    *string `json:"role_id"`
	ClearRole bool    `json:"clear_role,omitempty"`
	IsActive  *bool   `json:"is_active"`
}

type UpdateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type ChangePasswordRequest struct {
	OldPassword        string `json:"old_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

type ToggleActiveResponse struct {
	ID       string `json:"id"`
	IsActive bool   `json:"is_active"`
}

type ListUsersResponse struct {
	Users []User `json:"users"`
}

type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

type CreateRoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateRoleRequest struct {
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

type ListRolesResponse struct {
	Roles []Role `json:"roles"`
}

type Permission struct {
	ID          string `json:"id"`
	Module      string `json:"module"`
	Action      string `json:"action"`
	Codename    string `json:"codename"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

type ListPermissionsResponse struct {
	Permissions []Permission `json:"permissions"`
}

type PermissionsByModuleResponse struct {
	Modules map[string][]Permission `json:"modules"`
}

// GrantPermissionsRequest grants one or more permissions to a role.
type GrantPermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids"`
}

type GrantPermissionsResponse struct {
	Granted int `json:"granted"`
}

// EnrollResponse carries the TOTP provisioning material. The secret and QR
// code are shown exactly once per pending enrollment.
type EnrollResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	QRCode          string `json:"qr_code"`
	Issuer          string `json:"issuer"`
	Account         string `json:"account"`
}

type VerifyRequest struct {
	OTP string `json:"otp"`
}

type DisableTwoFactorRequest struct {
	Password string `json:"password"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

// HealthResponse is returned by the liveness and readiness probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
}
