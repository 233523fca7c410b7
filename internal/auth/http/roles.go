package http

import (
	"net/http"

	"github.com/laqq/authd/internal/auth/service"
	"github.com/laqq/authd/pkg/authapi"
	"github.com/laqq/authd/pkg/httpx"
)

// RolesHandler covers role administration and permission grants under
// /v1/roles.
type RolesHandler struct {
	Router *Router
	Roles  *service.RoleService
}

func (h *RolesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Router.authorize(w, r, service.OpRolesList, ""); !ok {
		return
	}

	roles, err := h.Roles.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]authapi.Role, 0, len(roles))
	for _, role := range roles {
		out = append(out, toAPIRole(role))
	}
	httpx.WriteJSON(w, http.StatusOK, authapi.ListRolesResponse{Roles: out})
}

func (h *RolesHandler) HandleRetrieve(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Router.authorize(w, r, service.OpRolesRetrieve, ""); !ok {
		return
	}

	role, err := h.Roles.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAPIRole(role))
}

func (h *RolesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Router.authorize(w, r, service.OpRolesCreate, ""); !ok {
		return
	}

	var req authapi.CreateRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	role, err := h.Roles.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toAPIRole(role))
}

func (h *RolesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Router.authorize(w, r, service.OpRolesUpdate, ""); !ok {
		return
	}

	var req authapi.UpdateRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	role, err := h.Roles.Update(r.Context(), r.PathValue("id"), req.Description, req.IsActive)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAPIRole(role))
}

func (h *RolesHandler) HandleDestroy(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Router.authorize(w, r, service.OpRolesDestroy, ""); !ok {
		return
	}

	if err := h.Roles.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RolesHandler) HandleListPermissions(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Router.authorize(w, r, service.OpRolesList, ""); !ok {
		return
	}

	perms, err := h.Roles.ListPermissions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]authapi.Permission, 0, len(perms))
	for _, p := range perms {
		out = append(out, toAPIPermission(p))
	}
	httpx.WriteJSON(w, http.StatusOK, authapi.ListPermissionsResponse{Permissions: out})
}

func (h *RolesHandler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.Router.authorize(w, r, service.OpRolesGrant, "")
	if !ok {
		return
	}

	var req authapi.GrantPermissionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.PermissionIDs) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "permission_ids must not be empty")
		return
	}

	granted, err := h.Roles.GrantMany(r.Context(), r.PathValue("id"), req.PermissionIDs, &caller.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authapi.GrantPermissionsResponse{Granted: granted})
}

func (h *RolesHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Router.authorize(w, r, service.OpRolesRevoke, ""); !ok {
		return
	}

	err := h.Roles.RevokePermission(r.Context(), r.PathValue("id"), r.PathValue("permissionID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
