package http

import (
	"net/http"
	"testing"

	"github.com/laqq/authd/internal/auth/domain"
	"github.com/laqq/authd/pkg/authapi"
	"github.com/stretchr/testify/require"
)

func TestUsersEndpointAuthorization(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "root@example.com", "password-123", userOpts{superuser: true})
	seller := env.seedUser(t, "seller@example.com", "password-123", userOpts{
		roleID: env.roleIDByName(t, domain.RoleBackoffice),
	})

	t.Run("no token", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/users", "", nil)
		requireStatus(t, rec, http.StatusUnauthorized)
	})

	t.Run("backoffice cannot list users", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/users", env.accessToken(t, seller), nil)
		requireStatus(t, rec, http.StatusForbidden)

		resp := decodeBody[authapi.ErrorResponse](t, rec)
		require.Equal(t, "permission_denied", resp.Error)
	})

	t.Run("superuser lists everyone", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/users", env.accessToken(t, admin), nil)
		requireStatus(t, rec, http.StatusOK)

		resp := decodeBody[authapi.ListUsersResponse](t, rec)
		require.Len(t, resp.Users, 2)
	})

	t.Run("self retrieve works without a grant", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/users/"+seller.ID, env.accessToken(t, seller), nil)
		requireStatus(t, rec, http.StatusOK)

		resp := decodeBody[authapi.User](t, rec)
		require.Equal(t, seller.ID, resp.ID)
		require.ElementsMatch(t, []string{
			"products_read", "orders_create", "orders_read", "clients_read",
		}, resp.Permissions)
	})

	t.Run("retrieving someone else needs users_read", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/users/"+admin.ID, env.accessToken(t, seller), nil)
		requireStatus(t, rec, http.StatusForbidden)
	})

	t.Run("token for a deleted account is rejected", func(t *testing.T) {
		ghost := env.seedUser(t, "ghost@example.com", "password-123", userOpts{superuser: true})
		token := env.accessToken(t, ghost)
		requireStatus(t, env.do(t, http.MethodDelete, "/v1/users/"+ghost.ID, env.accessToken(t, admin), nil), http.StatusNoContent)

		rec := env.do(t, http.MethodGet, "/v1/users", token, nil)
		requireStatus(t, rec, http.StatusUnauthorized)
	})
}

func TestUsersEndpointLifecycle(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "root@example.com", "password-123", userOpts{superuser: true})
	token := env.accessToken(t, admin)

	var created authapi.User

	t.Run("create", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/users", token, authapi.CreateUserRequest{
			Email:           "new@example.com",
			Password:        "password-123",
			PasswordConfirm: "password-123",
			FirstName:       "New",
			RoleID:          env.roleIDByName(t, domain.RoleBackoffice),
		})
		requireStatus(t, rec, http.StatusCreated)
		created = decodeBody[authapi.User](t, rec)
		require.Equal(t, "new@example.com", created.Email)
		require.NotNil(t, created.RoleID)
	})

	t.Run("validation errors carry field details", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/users", token, authapi.CreateUserRequest{
			Email:           "short@example.com",
			Password:        "short",
			PasswordConfirm: "short",
		})
		requireStatus(t, rec, http.StatusBadRequest)

		resp := decodeBody[authapi.ValidationErrorResponse](t, rec)
		require.Equal(t, "validation_error", resp.Error)
		require.Contains(t, resp.Details, "password")
	})

	t.Run("update clears the role", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/v1/users/"+created.ID, token, authapi.UpdateUserRequest{
			ClearRole: true,
		})
		requireStatus(t, rec, http.StatusOK)

		resp := decodeBody[authapi.User](t, rec)
		require.Nil(t, resp.RoleID)
	})

	t.Run("reset password", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/users/"+created.ID+"/reset-password", token,
			authapi.ResetPasswordRequest{NewPassword: "fresh-password-1"})
		requireStatus(t, rec, http.StatusOK)
	})

	t.Run("toggle active", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/users/"+created.ID+"/toggle-active", token, nil)
		requireStatus(t, rec, http.StatusOK)

		resp := decodeBody[authapi.ToggleActiveResponse](t, rec)
		require.False(t, resp.IsActive)
	})

	t.Run("cannot deactivate yourself", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/users/"+admin.ID+"/toggle-active", token, nil)
		requireStatus(t, rec, http.StatusConflict)
	})

	t.Run("cannot delete yourself", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/v1/users/"+admin.ID, token, nil)
		requireStatus(t, rec, http.StatusConflict)
	})

	t.Run("delete", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/v1/users/"+created.ID, token, nil)
		requireStatus(t, rec, http.StatusNoContent)

		rec = env.do(t, http.MethodGet, "/v1/users/"+created.ID, token, nil)
		requireStatus(t, rec, http.StatusNotFound)
	})
}
