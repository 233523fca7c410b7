package http

import (
	"net/http"

	"github.com/laqq/authd/internal/auth/service"
	"github.com/laqq/authd/pkg/authapi"
	"github.com/laqq/authd/pkg/httpx"
)

// TwoFactorHandler owns the TOTP lifecycle endpoints under /v1/2fa. Users
// manage their own second factor; there is no administrative enrollment on
// someone else's behalf.
type TwoFactorHandler struct {
	Router *Router
	TOTP   *service.TOTPService
}

func (h *TwoFactorHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.Router.caller(w, r)
	if !ok {
		return
	}
	if err := h.Router.Gate.Authorize(r.Context(), caller, service.OpTwoFactorEnroll, caller.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	enrollment, err := h.TOTP.BeginEnrollment(r.Context(), caller.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// The secret and QR code are sensitive; NoCache is already set by
	// WriteJSON but the body must never be logged either.
	httpx.WriteJSON(w, http.StatusOK, authapi.EnrollResponse{
		Secret:          enrollment.Secret,
		ProvisioningURI: enrollment.ProvisioningURI,
		QRCode:          enrollment.QRCode,
		Issuer:          enrollment.Issuer,
		Account:         enrollment.Account,
	})
}

func (h *TwoFactorHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.Router.caller(w, r)
	if !ok {
		return
	}
	if err := h.Router.Gate.Authorize(r.Context(), caller, service.OpTwoFactorVerify, caller.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req authapi.VerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.OTP == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "otp is required")
		return
	}

	if err := h.TOTP.ConfirmEnrollment(r.Context(), caller.ID, req.OTP); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authapi.StatusResponse{Status: "two_factor_enabled"})
}

func (h *TwoFactorHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.Router.caller(w, r)
	if !ok {
		return
	}
	if err := h.Router.Gate.Authorize(r.Context(), caller, service.OpTwoFactorDisable, caller.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req authapi.DisableTwoFactorRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.TOTP.Disable(r.Context(), caller.ID, req.Password); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authapi.StatusResponse{Status: "two_factor_disabled"})
}
