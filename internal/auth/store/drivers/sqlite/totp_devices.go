package sqlite

import (
	"context"
	"time"

	"github.com/laqq/authd/internal/auth/domain"
)

type totpDevicesRepo struct {
	db dbtx
}

const totpDeviceColumns = `id, user_id, name, secret, confirmed, created_at, updated_at`

func scanTOTPDevice(row interface{ Scan(...any) error }) (domain.TOTPDevice, error) {
	var d domain.TOTPDevice
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Secret, &d.Confirmed, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return domain.TOTPDevice{}, err
	}
	return d, nil
}

// GetOrCreateDevice inserts the device if the (user_id, name) slot is free,
// then reads back whichever row holds the slot. The conflict clause makes the
// insert race-safe: two concurrent enrollments converge on one row.
func (r *totpDevicesRepo) GetOrCreateDevice(ctx context.Context, d domain.TOTPDevice) (domain.TOTPDevice, bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO totp_devices (id, user_id, name, secret, confirmed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, name) DO NOTHING`,
		d.ID, d.UserID, d.Name, d.Secret, d.Confirmed, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return domain.TOTPDevice{}, false, mapConstraint(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.TOTPDevice{}, false, err
	}

	got, err := r.GetDeviceByUserAndName(ctx, d.UserID, d.Name)
	if err != nil {
		return domain.TOTPDevice{}, false, err
	}
	return got, n == 1, nil
}

func (r *totpDevicesRepo) GetDeviceByUserAndName(ctx context.Context, userID, name string) (domain.TOTPDevice, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+totpDeviceColumns+` FROM totp_devices WHERE user_id = ? AND name = ?`,
		userID, name)
	d, err := scanTOTPDevice(row)
	if err != nil {
		return domain.TOTPDevice{}, mapNotFound(err)
	}
	return d, nil
}

func (r *totpDevicesRepo) GetConfirmedDevice(ctx context.Context, userID string) (domain.TOTPDevice, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+totpDeviceColumns+`
		FROM totp_devices
		WHERE user_id = ? AND confirmed = 1
		ORDER BY updated_at DESC
		LIMIT 1`,
		userID)
	d, err := scanTOTPDevice(row)
	if err != nil {
		return domain.TOTPDevice{}, mapNotFound(err)
	}
	return d, nil
}

func (r *totpDevicesRepo) ListDevicesByUser(ctx context.Context, userID string) ([]domain.TOTPDevice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+totpDeviceColumns+` FROM totp_devices WHERE user_id = ? ORDER BY created_at, id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []domain.TOTPDevice
	for rows.Next() {
		d, err := scanTOTPDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func (r *totpDevicesRepo) ConfirmDevice(ctx context.Context, deviceID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE totp_devices SET confirmed = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		deviceID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *totpDevicesRepo) DeleteDevicesByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM totp_devices WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *totpDevicesRepo) DeleteUnconfirmedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM totp_devices WHERE confirmed = 0 AND created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
