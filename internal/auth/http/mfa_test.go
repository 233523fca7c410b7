package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/laqq/authd/pkg/authapi"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestTwoFactorEndpoints(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "alice@example.com", "password-123", userOpts{})
	token := env.accessToken(t, user)

	var enrollment authapi.EnrollResponse

	t.Run("enroll", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/2fa/enroll", token, nil)
		requireStatus(t, rec, http.StatusOK)

		enrollment = decodeBody[authapi.EnrollResponse](t, rec)
		require.NotEmpty(t, enrollment.Secret)
		require.Contains(t, enrollment.ProvisioningURI, "otpauth://totp/")
		require.NotEmpty(t, enrollment.QRCode)
	})

	t.Run("verify with a wrong code", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/2fa/verify", token, authapi.VerifyRequest{OTP: "000000"})
		requireStatus(t, rec, http.StatusUnauthorized)
	})

	t.Run("verify", func(t *testing.T) {
		code, err := totp.GenerateCode(enrollment.Secret, time.Now())
		require.NoError(t, err)

		rec := env.do(t, http.MethodPost, "/v1/2fa/verify", token, authapi.VerifyRequest{OTP: code})
		requireStatus(t, rec, http.StatusOK)

		resp := decodeBody[authapi.StatusResponse](t, rec)
		require.Equal(t, "two_factor_enabled", resp.Status)
	})

	t.Run("second enrollment is refused", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/2fa/enroll", token, nil)
		requireStatus(t, rec, http.StatusConflict)

		resp := decodeBody[authapi.ErrorResponse](t, rec)
		require.Equal(t, "second_factor_already_enabled", resp.Error)
	})

	t.Run("disable needs the password", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/2fa/disable", token, authapi.DisableTwoFactorRequest{
			Password: "wrong",
		})
		requireStatus(t, rec, http.StatusUnauthorized)
	})

	t.Run("disable", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/2fa/disable", token, authapi.DisableTwoFactorRequest{
			Password: "password-123",
		})
		requireStatus(t, rec, http.StatusOK)

		resp := decodeBody[authapi.StatusResponse](t, rec)
		require.Equal(t, "two_factor_disabled", resp.Status)
	})
}
