package http

import (
	"net/http"

	"github.com/laqq/authd/internal/auth/service"
	"github.com/laqq/authd/pkg/authapi"
	"github.com/laqq/authd/pkg/httpx"
)

// UsersHandler covers account administration under /v1/users.
type UsersHandler struct {
	Router *Router
	Users  *service.UserService
}

func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Router.authorize(w, r, service.OpUsersList, ""); !ok {
		return
	}

	users, err := h.Users.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]authapi.User, 0, len(users))
	for _, u := range users {
		out = append(out, toAPIUser(u))
	}
	httpx.WriteJSON(w, http.StatusOK, authapi.ListUsersResponse{Users: out})
}

func (h *UsersHandler) HandleRetrieve(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.Router.authorize(w, r, service.OpUsersRetrieve, id); !ok {
		return
	}

	user, err := h.Users.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	apiUser := toAPIUser(user)
	codenames, err := h.Router.permissionCodenames(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiUser.Permissions = codenames
	httpx.WriteJSON(w, http.StatusOK, apiUser)
}

func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Router.authorize(w, r, service.OpUsersCreate, ""); !ok {
		return
	}

	var req authapi.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.Users.Create(r.Context(), service.CreateUserInput{
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		RoleID:          req.RoleID,
		IsStaff:         req.IsStaff,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toAPIUser(user))
}

func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.Router.authorize(w, r, service.OpUsersUpdate, ""); !ok {
		return
	}

	var req authapi.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.Users.Update(r.Context(), id, service.UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		RoleID:    req.RoleID,
		ClearRole: req.ClearRole,
		IsActive:  req.IsActive,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAPIUser(user))
}

func (h *UsersHandler) HandleDestroy(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	caller, ok := h.Router.authorize(w, r, service.OpUsersDestroy, "")
	if !ok {
		return
	}
	// Self-deletion through the admin surface locks the caller out mid
	// session; refuse it outright.
	if caller.ID == id {
		httpx.WriteError(w, http.StatusConflict, "cannot_delete_self", "Use a different administrator account to delete this one")
		return
	}

	if err := h.Users.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UsersHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.Router.authorize(w, r, service.OpUsersResetPassword, ""); !ok {
		return
	}

	var req authapi.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Users.ResetPassword(r.Context(), id, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authapi.StatusResponse{Status: "password_reset"})
}

func (h *UsersHandler) HandleToggleActive(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	caller, ok := h.Router.authorize(w, r, service.OpUsersToggleActive, "")
	if !ok {
		return
	}
	if caller.ID == id {
		httpx.WriteError(w, http.StatusConflict, "cannot_deactivate_self", "Use a different administrator account to change this one")
		return
	}

	active, err := h.Users.ToggleActive(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authapi.ToggleActiveResponse{ID: id, IsActive: active})
}
