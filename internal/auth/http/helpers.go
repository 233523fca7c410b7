package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/laqq/authd/internal/auth/domain"
	"github.com/laqq/authd/internal/auth/service"
	"github.com/laqq/authd/internal/auth/store"
	"github.com/laqq/authd/pkg/authapi"
	"github.com/laqq/authd/pkg/httpx"
	"github.com/laqq/authd/pkg/slogx"
)

// decodeJSON parses the request body into dst, rejecting unknown fields.
// It writes the 400 itself; callers just return on false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return false
	}
	return true
}

// writeServiceError maps service-layer errors onto HTTP responses. The
// credential failures share one body so a caller can never distinguish
// "no such account" from "wrong password".
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	var sfr *service.SecondFactorRequiredError
	if errors.As(err, &sfr) {
		httpx.WriteJSON(w, http.StatusUnauthorized, authapi.SecondFactorRequiredResponse{
			Error:                "second_factor_required",
			ErrorDescription:     "A one-time code is required to complete this login",
			RequiresSecondFactor: true,
		})
		return
	}

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		httpx.WriteJSON(w, http.StatusBadRequest, authapi.ValidationErrorResponse{
			Error:   "validation_error",
			Message: "request validation failed",
			Details: map[string]string{verr.Field: verr.Reason},
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
	case errors.Is(err, service.ErrAccountDisabled):
		httpx.WriteError(w, http.StatusForbidden, "account_disabled", "This account has been disabled")
	case errors.Is(err, service.ErrInvalidSecondFactor):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_second_factor", "The one-time code is not valid")
	case errors.Is(err, service.ErrSecondFactorMisconfigured):
		httpx.WriteError(w, http.StatusConflict, "second_factor_misconfigured", "Two-factor authentication is enabled but no confirmed device exists")
	case errors.Is(err, service.ErrSecondFactorAlreadyEnabled):
		httpx.WriteError(w, http.StatusConflict, "second_factor_already_enabled", "Two-factor authentication is already enabled")
	case errors.Is(err, service.ErrSecondFactorNotEnabled):
		httpx.WriteError(w, http.StatusConflict, "second_factor_not_enabled", "Two-factor authentication is not enabled")
	case errors.Is(err, service.ErrInvalidRefresh):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_refresh_token", "The refresh token is missing, invalid or expired")
	case errors.Is(err, service.ErrPermissionDenied):
		httpx.WriteError(w, http.StatusForbidden, "permission_denied", "You do not have permission to perform this action")
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "The requested resource does not exist")
	case errors.Is(err, store.ErrProtected):
		httpx.WriteError(w, http.StatusConflict, "resource_in_use", "The resource is still referenced and cannot be deleted")
	case errors.Is(err, service.ErrAmbiguousIdentity):
		// Data anomaly, not a client mistake. Fail closed without detail.
		log.Error("ambiguous identity during login")
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Unable to process the request")
	default:
		log.Error("unhandled service error", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Unable to process the request")
	}
}

func toAPIUser(u domain.User) authapi.User {
	var lastLogin *string
	if u.LastLogin != nil {
		s := u.LastLogin.UTC().Format(time.RFC3339)
		lastLogin = &s
	}
	return authapi.User{
		ID:               u.ID,
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Phone:            u.Phone,
		RoleID:           u.RoleID,
		IsActive:         u.IsActive,
		IsStaff:          u.IsStaff,
		IsSuperuser:      u.IsSuperuser,
		TwoFactorEnabled: u.TwoFactorEnabled,
		DateJoined:       u.DateJoined.UTC().Format(time.RFC3339),
		LastLogin:        lastLogin,
	}
}

func toAPIRole(role domain.Role) authapi.Role {
	return authapi.Role{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		IsActive:    role.IsActive,
	}
}

func toAPIPermission(p domain.Permission) authapi.Permission {
	return authapi.Permission{
		ID:          p.ID,
		Module:      string(p.Module),
		Action:      string(p.Action),
		Codename:    p.Codename,
		Description: p.Description,
		IsActive:    p.IsActive,
	}
}
