package service

import (
	"context"
	"testing"
	"time"

	"github.com/laqq/authd/internal/auth/domain"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestBeginEnrollment(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &TOTPService{Store: st, Issuer: "authd-test"}

	user := seedUser(t, st, "alice@example.com", "password-123", userOpts{})

	first, err := svc.BeginEnrollment(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, first.Secret)
	require.Contains(t, first.ProvisioningURI, "otpauth://totp/")
	require.Contains(t, first.ProvisioningURI, "alice%40example.com")
	require.NotEmpty(t, first.QRCode)
	require.Equal(t, "authd-test", first.Issuer)

	t.Run("retry before confirmation reuses the secret", func(t *testing.T) {
		second, err := svc.BeginEnrollment(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, first.Secret, second.Secret)

		devices, err := st.TOTPDevices().ListDevicesByUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, devices, 1)
		require.False(t, devices[0].Confirmed)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.BeginEnrollment(ctx, "01JUNKUSERID0000000000000")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestConfirmEnrollment(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &TOTPService{Store: st, Issuer: "authd-test"}

	user := seedUser(t, st, "alice@example.com", "password-123", userOpts{})

	enrollment, err := svc.BeginEnrollment(ctx, user.ID)
	require.NoError(t, err)

	t.Run("wrong code writes nothing", func(t *testing.T) {
		require.ErrorIs(t, svc.ConfirmEnrollment(ctx, user.ID, "000000"), ErrInvalidSecondFactor)

		device, err := st.TOTPDevices().GetDeviceByUserAndName(ctx, user.ID, domain.DefaultDeviceName)
		require.NoError(t, err)
		require.False(t, device.Confirmed)

		stored, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.False(t, stored.TwoFactorEnabled)
	})

	t.Run("correct code confirms device and flag together", func(t *testing.T) {
		code, err := totp.GenerateCode(enrollment.Secret, time.Now())
		require.NoError(t, err)
		require.NoError(t, svc.ConfirmEnrollment(ctx, user.ID, code))

		device, err := st.TOTPDevices().GetDeviceByUserAndName(ctx, user.ID, domain.DefaultDeviceName)
		require.NoError(t, err)
		require.True(t, device.Confirmed)

		stored, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, stored.TwoFactorEnabled)
	})

	t.Run("enrollment after confirmation is refused", func(t *testing.T) {
		_, err := svc.BeginEnrollment(ctx, user.ID)
		require.ErrorIs(t, err, ErrSecondFactorAlreadyEnabled)

		code, err := totp.GenerateCode(enrollment.Secret, time.Now())
		require.NoError(t, err)
		require.ErrorIs(t, svc.ConfirmEnrollment(ctx, user.ID, code), ErrSecondFactorAlreadyEnabled)
	})
}

func TestConfirmWithoutEnrollment(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &TOTPService{Store: st, Issuer: "authd-test"}

	user := seedUser(t, st, "alice@example.com", "password-123", userOpts{})
	require.ErrorIs(t, svc.ConfirmEnrollment(ctx, user.ID, "123456"), ErrNotFound)
}

func TestDisable(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &TOTPService{Store: st, Issuer: "authd-test"}

	user := seedUser(t, st, "alice@example.com", "password-123", userOpts{})

	enrollment, err := svc.BeginEnrollment(ctx, user.ID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmEnrollment(ctx, user.ID, code))

	t.Run("wrong password leaves 2FA on", func(t *testing.T) {
		require.ErrorIs(t, svc.Disable(ctx, user.ID, "wrong"), ErrInvalidCredentials)

		stored, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, stored.TwoFactorEnabled)
	})

	t.Run("correct password clears flag and deletes all devices", func(t *testing.T) {
		require.NoError(t, svc.Disable(ctx, user.ID, "password-123"))

		stored, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.False(t, stored.TwoFactorEnabled)

		devices, err := st.TOTPDevices().ListDevicesByUser(ctx, user.ID)
		require.NoError(t, err)
		require.Empty(t, devices)
	})

	t.Run("disable with nothing enabled", func(t *testing.T) {
		require.ErrorIs(t, svc.Disable(ctx, user.ID, "password-123"), ErrSecondFactorNotEnabled)
	})

	t.Run("re-enrollment after disable mints a fresh secret", func(t *testing.T) {
		second, err := svc.BeginEnrollment(ctx, user.ID)
		require.NoError(t, err)
		require.NotEqual(t, enrollment.Secret, second.Secret)
	})
}

func TestPruneStaleEnrollments(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &TOTPService{Store: st, Issuer: "authd-test"}

	abandoned := seedUser(t, st, "gone@example.com", "password-123", userOpts{})
	committed := seedUser(t, st, "here@example.com", "password-123", userOpts{})

	_, err := svc.BeginEnrollment(ctx, abandoned.ID)
	require.NoError(t, err)

	enrollment, err := svc.BeginEnrollment(ctx, committed.ID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmEnrollment(ctx, committed.ID, code))

	// A cutoff in the future sweeps every unconfirmed row but must leave
	// confirmed devices alone.
	deleted, err := st.TOTPDevices().DeleteUnconfirmedBefore(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	devices, err := st.TOTPDevices().ListDevicesByUser(ctx, abandoned.ID)
	require.NoError(t, err)
	require.Empty(t, devices)

	devices, err = st.TOTPDevices().ListDevicesByUser(ctx, committed.ID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
}
