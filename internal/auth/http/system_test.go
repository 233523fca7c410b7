package http

import (
	"net/http"
	"testing"

	"github.com/laqq/authd/pkg/authapi"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("livez", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/livez", "", nil)
		requireStatus(t, rec, http.StatusOK)

		resp := decodeBody[authapi.HealthResponse](t, rec)
		require.Equal(t, "ok", resp.Status)
		require.Equal(t, "test", resp.Version)
	})

	t.Run("readyz", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/readyz", "", nil)
		requireStatus(t, rec, http.StatusOK)

		resp := decodeBody[authapi.HealthResponse](t, rec)
		require.Equal(t, "ok", resp.Status)
		require.NotNil(t, resp.Checks)
		require.Equal(t, "ok", resp.Checks.Database)
	})
}
