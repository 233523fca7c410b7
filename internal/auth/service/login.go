package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/laqq/authd/internal/auth/domain"
	"github.com/laqq/authd/internal/auth/store"
	"github.com/laqq/authd/pkg/cryptox"
	"github.com/laqq/authd/pkg/slogx"
	"github.com/pquerna/otp/totp"
)

// LoginService runs the credential + second factor state machine and hands
// successful callers to the TokenService.
type LoginService struct {
	Store  store.Store
	Tokens *TokenService
}

type LoginInput struct {
	Email    string
	Password string
	OTP      string
}

type LoginResult struct {
	User   domain.User
	Tokens domain.TokenPair
}

// Login authenticates a user. Outcomes, in evaluation order:
//
//   - unknown email or wrong password  -> ErrInvalidCredentials
//   - email matches multiple accounts  -> ErrAmbiguousIdentity
//   - inactive account                 -> ErrAccountDisabled
//   - 2FA on, no OTP supplied          -> *SecondFactorRequiredError
//   - 2FA on, no confirmed device      -> ErrSecondFactorMisconfigured
//   - 2FA on, wrong OTP                -> ErrInvalidSecondFactor
//
// The unknown-email and ambiguous-email paths burn a dummy argon2
// verification so their latency matches the wrong-password path.
func (s *LoginService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	l := slogx.FromContext(ctx)
	email := strings.TrimSpace(in.Email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			cryptox.DummyVerify(in.Password)
			return LoginResult{}, ErrInvalidCredentials
		case errors.Is(err, store.ErrAmbiguous):
			cryptox.DummyVerify(in.Password)
			l.Error("email resolves to multiple accounts", "email", email)
			return LoginResult{}, ErrAmbiguousIdentity
		default:
			return LoginResult{}, err
		}
	}

	if err := cryptox.VerifyPassword(in.Password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if !user.IsActive {
		return LoginResult{}, ErrAccountDisabled
	}

	if err := s.checkSecondFactor(ctx, &user, in.OTP); err != nil {
		return LoginResult{}, err
	}

	now := time.Now().UTC()
	if err := s.Store.Users().UpdateLastLogin(ctx, user.ID, now); err != nil {
		return LoginResult{}, err
	}
	user.LastLogin = &now

	pair, err := s.Tokens.IssuePair(user, now)
	if err != nil {
		return LoginResult{}, err
	}

	l.Info("login succeeded", "user_id", user.ID)
	return LoginResult{User: user, Tokens: pair}, nil
}

// checkSecondFactor enforces 2FA when either the user flag or a confirmed
// device says so. A confirmed device with the flag still off means a crash
// between the two writes of enrollment; we repair the flag and then demand
// the OTP as usual.
func (s *LoginService) checkSecondFactor(ctx context.Context, user *domain.User, otpCode string) error {
	l := slogx.FromContext(ctx)

	device, err := s.Store.TOTPDevices().GetConfirmedDevice(ctx, user.ID)
	hasDevice := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if !user.TwoFactorEnabled && !hasDevice {
		return nil
	}

	if hasDevice && !user.TwoFactorEnabled {
		l.Warn("confirmed device without two_factor_enabled, repairing", "user_id", user.ID)
		if err := s.Store.Users().SetTwoFactorEnabled(ctx, user.ID, true); err != nil {
			return err
		}
		user.TwoFactorEnabled = true
	}

	if otpCode == "" {
		return &SecondFactorRequiredError{}
	}

	if !hasDevice {
		l.Error("two_factor_enabled set but no confirmed device", "user_id", user.ID)
		return ErrSecondFactorMisconfigured
	}

	if !totp.Validate(otpCode, device.Secret) {
		return ErrInvalidSecondFactor
	}
	return nil
}
