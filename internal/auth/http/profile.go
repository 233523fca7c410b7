package http

import (
	"net/http"

	"github.com/laqq/authd/internal/auth/service"
	"github.com/laqq/authd/pkg/authapi"
	"github.com/laqq/authd/pkg/httpx"
)

// ProfileHandler covers the self-service endpoints under /v1/users/me. The
// owner ID passed to the gate is always the caller's own, so these work
// without any role grant.
type ProfileHandler struct {
	Router *Router
	Users  *service.UserService
}

func (h *ProfileHandler) HandleRetrieve(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.Router.caller(w, r)
	if !ok {
		return
	}
	if err := h.Router.Gate.Authorize(r.Context(), caller, service.OpProfileRetrieve, caller.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	apiUser := toAPIUser(caller)
	codenames, err := h.Router.permissionCodenames(r.Context(), caller)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiUser.Permissions = codenames
	httpx.WriteJSON(w, http.StatusOK, apiUser)
}

func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.Router.caller(w, r)
	if !ok {
		return
	}
	if err := h.Router.Gate.Authorize(r.Context(), caller, service.OpProfileUpdate, caller.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req authapi.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.Users.UpdateProfile(r.Context(), caller.ID, req.FirstName, req.LastName, req.Phone)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAPIUser(user))
}

func (h *ProfileHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.Router.caller(w, r)
	if !ok {
		return
	}
	if err := h.Router.Gate.Authorize(r.Context(), caller, service.OpChangePassword, caller.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req authapi.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.Users.ChangePassword(r.Context(), caller.ID,
		req.OldPassword, req.NewPassword, req.NewPasswordConfirm)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authapi.StatusResponse{Status: "password_changed"})
}
