package service

import (
	"context"
	"testing"
	"time"

	"github.com/laqq/authd/internal/auth/domain"
	"github.com/laqq/authd/internal/auth/store"
	"github.com/laqq/authd/pkg/cryptox"
	"github.com/laqq/authd/pkg/jwtx"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func newLoginService(t *testing.T, st store.Store) *LoginService {
	t.Helper()
	return &LoginService{Store: st, Tokens: newTokenService(t, st)}
}

func TestLoginCredentialOutcomes(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newLoginService(t, st)

	seedUser(t, st, "alice@example.com", "correct-password", userOpts{})
	seedUser(t, st, "asleep@example.com", "correct-password", userOpts{inactive: true})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "whatever"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("email matching is case-insensitive", func(t *testing.T) {
		res, err := svc.Login(ctx, LoginInput{Email: "ALICE@Example.COM", Password: "correct-password"})
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", res.User.Email)
	})

	t.Run("disabled account with correct password", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Email: "asleep@example.com", Password: "correct-password"})
		require.ErrorIs(t, err, ErrAccountDisabled)
	})

	t.Run("disabled account with wrong password stays invalid_credentials", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Email: "asleep@example.com", Password: "wrong"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestLoginSuccessIssuesTokenPair(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	provisionDefaults(t, st)
	svc := newLoginService(t, st)

	backoffice := roleIDByName(t, st, domain.RoleBackoffice)
	seedUser(t, st, "seller@example.com", "correct-password", userOpts{roleID: backoffice})

	res, err := svc.Login(ctx, LoginInput{Email: "seller@example.com", Password: "correct-password"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Tokens.AccessToken)
	require.NotEmpty(t, res.Tokens.RefreshToken)
	require.Equal(t, "Bearer", res.Tokens.TokenType)
	require.NotNil(t, res.User.LastLogin)

	// Access token carries identity claims; refresh token is marked as such.
	access, err := svc.Tokens.Verifier.Verify(res.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, access.Subject)
	require.Equal(t, "seller@example.com", access.Email)
	require.Equal(t, jwtx.TokenUseAccess, access.TokenUse)

	refresh, err := svc.Tokens.Verifier.Verify(res.Tokens.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, jwtx.TokenUseRefresh, refresh.TokenUse)

	// last_login was persisted, not just set on the returned copy.
	stored, err := st.Users().GetUserByID(ctx, res.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
}

func TestLoginSecondFactorFlow(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newLoginService(t, st)
	totpSvc := &TOTPService{Store: st, Issuer: "authd-test"}

	user := seedUser(t, st, "mfa@example.com", "correct-password", userOpts{})

	enrollment, err := totpSvc.BeginEnrollment(ctx, user.ID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, totpSvc.ConfirmEnrollment(ctx, user.ID, code))

	t.Run("correct password without otp prompts for second factor", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Email: "mfa@example.com", Password: "correct-password"})
		require.True(t, IsSecondFactorRequired(err))
	})

	t.Run("wrong password reports invalid_credentials, not the 2FA prompt", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Email: "mfa@example.com", Password: "wrong"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong otp", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Email: "mfa@example.com", Password: "correct-password", OTP: "000000"})
		require.ErrorIs(t, err, ErrInvalidSecondFactor)
	})

	t.Run("correct otp issues the pair", func(t *testing.T) {
		code, err := totp.GenerateCode(enrollment.Secret, time.Now())
		require.NoError(t, err)

		res, err := svc.Login(ctx, LoginInput{Email: "mfa@example.com", Password: "correct-password", OTP: code})
		require.NoError(t, err)
		require.NotEmpty(t, res.Tokens.AccessToken)
	})
}

func TestLoginFlagWithoutDeviceIsMisconfigured(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newLoginService(t, st)

	seedUser(t, st, "broken@example.com", "correct-password", userOpts{twoFactorOn: true})

	// Password-only still prompts for the factor; only a submitted OTP
	// exposes the misconfiguration.
	_, err := svc.Login(ctx, LoginInput{Email: "broken@example.com", Password: "correct-password"})
	require.True(t, IsSecondFactorRequired(err))

	_, err = svc.Login(ctx, LoginInput{Email: "broken@example.com", Password: "correct-password", OTP: "123456"})
	require.ErrorIs(t, err, ErrSecondFactorMisconfigured)
}

func TestLoginRepairsLaggingTwoFactorFlag(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newLoginService(t, st)
	totpSvc := &TOTPService{Store: st, Issuer: "authd-test"}

	user := seedUser(t, st, "crashed@example.com", "correct-password", userOpts{})

	enrollment, err := totpSvc.BeginEnrollment(ctx, user.ID)
	require.NoError(t, err)

	// Simulate the flag write being lost: confirm the device directly.
	device, err := st.TOTPDevices().GetDeviceByUserAndName(ctx, user.ID, domain.DefaultDeviceName)
	require.NoError(t, err)
	require.NoError(t, st.TOTPDevices().ConfirmDevice(ctx, device.ID))

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)

	res, err := svc.Login(ctx, LoginInput{Email: "crashed@example.com", Password: "correct-password", OTP: code})
	require.NoError(t, err)
	require.True(t, res.User.TwoFactorEnabled)

	stored, err := st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, stored.TwoFactorEnabled)
}

// ambiguousStore simulates pre-index data where one email resolves to two
// accounts. The real schema forbids this, so the anomaly is injected at the
// repository seam.
type ambiguousStore struct {
	store.Store
}

func (s ambiguousStore) Users() store.Users { return ambiguousUsers{s.Store.Users()} }

type ambiguousUsers struct {
	store.Users
}

func (ambiguousUsers) GetUserByEmail(context.Context, string) (domain.User, error) {
	return domain.User{}, store.ErrAmbiguous
}

func TestLoginAmbiguousEmailFailsClosed(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newLoginService(t, ambiguousStore{st})

	_, err := svc.Login(ctx, LoginInput{Email: "dup@example.com", Password: "whatever"})
	require.ErrorIs(t, err, ErrAmbiguousIdentity)
}

func TestLoginAmbiguousEmailCostsLikeWrongPassword(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	realSvc := newLoginService(t, st)
	ambiguousSvc := newLoginService(t, ambiguousStore{st})

	seedUser(t, st, "alice@example.com", "correct-password", userOpts{})

	cryptox.DummyVerify("warmup")

	const rounds = 3

	start := time.Now()
	for range rounds {
		_, err := realSvc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	knownCost := time.Since(start)

	start = time.Now()
	for range rounds {
		_, err := ambiguousSvc.Login(ctx, LoginInput{Email: "dup@example.com", Password: "wrong"})
		require.ErrorIs(t, err, ErrAmbiguousIdentity)
	}
	ambiguousCost := time.Since(start)

	// The fail-closed path must not short-circuit past the hash work.
	require.Greater(t, ambiguousCost, knownCost/3)
	require.Less(t, ambiguousCost, knownCost*3)
}

func TestLoginUnknownEmailCostsLikeWrongPassword(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newLoginService(t, st)

	seedUser(t, st, "alice@example.com", "correct-password", userOpts{})

	// Warm the dummy hash so one-time setup is excluded from the timing.
	cryptox.DummyVerify("warmup")

	const rounds = 3

	start := time.Now()
	for range rounds {
		_, err := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	knownCost := time.Since(start)

	start = time.Now()
	for range rounds {
		_, err := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "wrong"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	unknownCost := time.Since(start)

	// Coarse-grained: the unknown-email path must burn a comparable amount
	// of work, not short-circuit.
	require.Greater(t, unknownCost, knownCost/3)
	require.Less(t, unknownCost, knownCost*3)
}
