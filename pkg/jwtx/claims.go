package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Short access tokens limit the blast radius of a leaked
// token; the refresh token carries the long-lived session.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token use values distinguish the two halves of a token pair. A refresh
// token must never be accepted where an access token is expected, and vice
// versa.
const (
	TokenUseAccess  = "access"
	TokenUseRefresh = "refresh"
)

// Claims are the JWT claims this service issues. Keep changes additive so
// already-issued tokens stay parseable.
type Claims struct {
	jwt.RegisteredClaims

	// TokenUse is "access" or "refresh".
	TokenUse string `json:"token_use,omitempty"`

	// Email of the authenticated user.
	Email string `json:"email,omitempty"`

	// RoleID of the user's role at issuance time. Authorization decisions
	// re-check the store, so this is informational.
	RoleID string `json:"role_id,omitempty"`

	// Superuser marks accounts that bypass permission checks.
	Superuser bool `json:"superuser,omitempty"`
}

// NewClaims builds minimally-correct claims for the given token use.
func NewClaims(
	tokenUse, subject, email, roleID string,
	superuser bool,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		TokenUse:  tokenUse,
		Email:     email,
		RoleID:    roleID,
		Superuser: superuser,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf).
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}

// ValidateTokenUse enforces the access/refresh distinction.
func (c *Claims) ValidateTokenUse(expected string) error {
	if c.TokenUse != expected {
		return ErrTokenUse
	}
	return nil
}
