package http

import (
	"net/http"

	"github.com/laqq/authd/internal/auth/service"
	"github.com/laqq/authd/pkg/authapi"
	"github.com/laqq/authd/pkg/httpx"
)

// PermissionsHandler serves the read-only permission catalog.
type PermissionsHandler struct {
	Router      *Router
	Permissions *service.PermissionService
}

func (h *PermissionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Router.authorize(w, r, service.OpPermissionsList, ""); !ok {
		return
	}

	perms, err := h.Permissions.List(r.Context())
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

func (h *PermissionsHandler) HandleListByModule(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Router.authorize(w, r, service.OpPermissionsList, ""); !ok {
		return
	}

	grouped, err := h.Permissions.ListByModule(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	modules := make(map[string][]authapi.Permission, len(grouped))
	for module, perms := range grouped {
		out := make([]authapi.Permission, 0, len(perms))
		for _, p := range perms {
			out = append(out, toAPIPermission(p))
		}
		modules[string(module)] = out
	}
	httpx.WriteJSON(w, http.StatusOK, authapi.PermissionsByModuleResponse{Modules: modules})
}
