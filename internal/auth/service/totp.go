package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"net/url"
	"time"

	"github.com/laqq/authd/internal/auth/domain"
	"github.com/laqq/authd/internal/auth/store"
	"github.com/laqq/authd/pkg/cryptox"
	"github.com/laqq/authd/pkg/idx"
	"github.com/laqq/authd/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const qrImageSize = 256

// TOTPService owns the device lifecycle: enroll (unconfirmed device),
// confirm (device + user flag flip atomically), disable (flag off, devices
// gone).
type TOTPService struct {
	Store  store.Store
	Issuer string
}

// BeginEnrollment returns the provisioning material for the user's
// "default" device, creating it unconfirmed if it does not exist yet.
// Calling it again before confirmation returns the SAME secret, so a user
// who lost the first QR code can just re-request it. After confirmation it
// refuses with ErrSecondFactorAlreadyEnabled; disable first to re-enroll.
func (s *TOTPService) BeginEnrollment(ctx context.Context, userID string) (domain.TOTPEnrollment, error) {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.TOTPEnrollment{}, mapStoreNotFound(err)
	}
	if user.TwoFactorEnabled {
		return domain.TOTPEnrollment{}, ErrSecondFactorAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.TOTPEnrollment{}, fmt.Errorf("generate totp key: %w", err)
	}

	now := time.Now().UTC()
	device, created, err := s.Store.TOTPDevices().GetOrCreateDevice(ctx, domain.TOTPDevice{
		ID:        idx.New().String(),
		UserID:    user.ID,
		Name:      domain.DefaultDeviceName,
		Secret:    key.Secret(),
		Confirmed: false,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return domain.TOTPEnrollment{}, err
	}

	if device.Confirmed {
		// Device confirmed but the user flag lagged behind; login repairs
		// the flag, enrollment just refuses.
		return domain.TOTPEnrollment{}, ErrSecondFactorAlreadyEnabled
	}

	if !created {
		// Pending enrollment already exists: hand back the original secret
		// so a previously scanned QR code stays valid.
		key, err = provisioningKey(s.Issuer, user.Email, device.Secret)
		if err != nil {
			return domain.TOTPEnrollment{}, err
		}
	}

	qr, err := encodeQR(key)
	if err != nil {
		return domain.TOTPEnrollment{}, err
	}

	l.Info("totp enrollment started", "user_id", user.ID, "new_device", created)
	return domain.TOTPEnrollment{
		Secret:          device.Secret,
		ProvisioningURI: key.URL(),
		QRCode:          qr,
		Issuer:          s.Issuer,
		Account:         user.Email,
	}, nil
}

// ConfirmEnrollment validates the first OTP against the pending device. On
// success the device confirmation and the user's two_factor_enabled flag
// commit in one transaction, so login can never observe one without being
// able to recover the other. A wrong code writes nothing.
func (s *TOTPService) ConfirmEnrollment(ctx context.Context, userID, code string) error {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return mapStoreNotFound(err)
	}
	if user.TwoFactorEnabled {
		return ErrSecondFactorAlreadyEnabled
	}

	device, err := s.Store.TOTPDevices().GetDeviceByUserAndName(ctx, user.ID, domain.DefaultDeviceName)
	if err != nil {
		return mapStoreNotFound(err)
	}
	if device.Confirmed {
		return ErrSecondFactorAlreadyEnabled
	}

	if !totp.Validate(code, device.Secret) {
		return ErrInvalidSecondFactor
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.TOTPDevices().ConfirmDevice(ctx, device.ID); err != nil {
			return err
		}
		return tx.Users().SetTwoFactorEnabled(ctx, user.ID, true)
	})
	if err != nil {
		return err
	}

	l.Info("totp enrollment confirmed", "user_id", user.ID)
	return nil
}

// Disable turns 2FA off after re-verifying the account password. It deletes
// every device the user has, confirmed or pending, and clears the flag in
// the same transaction. A later enrollment starts from a fresh secret.
func (s *TOTPService) Disable(ctx context.Context, userID, password string) error {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return mapStoreNotFound(err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			return ErrInvalidCredentials
		}
		return err
	}

	devices, err := s.Store.TOTPDevices().ListDevicesByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled && len(devices) == 0 {
		return ErrSecondFactorNotEnabled
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.TOTPDevices().DeleteDevicesByUser(ctx, user.ID); err != nil {
			return err
		}
		return tx.Users().SetTwoFactorEnabled(ctx, user.ID, false)
	})
	if err != nil {
		return err
	}

	l.Info("totp disabled", "user_id", user.ID, "devices_removed", len(devices))
	return nil
}

// provisioningKey rebuilds an otp.Key from a stored secret so retries of an
// unconfirmed enrollment present the original otpauth:// URI.
func provisioningKey(issuer, account, secret string) (*otp.Key, error) {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("algorithm", "SHA1")
	v.Set("digits", "6")
	v.Set("period", "30")

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + issuer + ":" + account,
		RawQuery: v.Encode(),
	}
	return otp.NewKeyFromURL(u.String())
}

// encodeQR renders the provisioning URI as a base64 PNG.
func encodeQR(key *otp.Key) (string, error) {
	img, err := key.Image(qrImageSize, qrImageSize)
	if err != nil {
		return "", fmt.Errorf("render qr: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode qr png: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// mapStoreNotFound normalizes store.ErrNotFound to the service sentinel.
func mapStoreNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
