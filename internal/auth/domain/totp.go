package domain

import "time"

// DefaultDeviceName is the logical name of the single TOTP device this flow
// manages per user.
const DefaultDeviceName = "default"

// TOTPDevice is owned exclusively by one user. Unconfirmed devices only
// exist during enrollment; confirming one flips TwoFactorEnabled on the
// owner.
type TOTPDevice struct {
	ID        string
	UserID    string
	Name      string
	Secret    string // base32 encoded
	Confirmed bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TOTPEnrollment is returned when a user begins (or retries) 2FA enrollment.
type TOTPEnrollment struct {
	Secret          string `json:"secret"`           // base32 secret, shown once per enrollment
	ProvisioningURI string `json:"provisioning_uri"` // otpauth:// URL
	QRCode          string `json:"qr_code"`          // data:image/png;base64 rendering of the URI
	Issuer          string `json:"issuer"`
	Account         string `json:"account"` // user email
}
