package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/laqq/authd/internal/auth/domain"
	"github.com/laqq/authd/internal/auth/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, password_hash, first_name, last_name, phone, role_id,
	is_active, is_staff, is_superuser, is_verified, two_factor_enabled,
	date_joined, last_login, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u         domain.User
		roleID    sql.NullString
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &roleID,
		&u.IsActive, &u.IsStaff, &u.IsSuperuser, &u.IsVerified, &u.TwoFactorEnabled,
		&u.DateJoined, &lastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.RoleID = mapNullStringPtr(roleID)
	u.LastLogin = mapNullTimePtr(lastLogin)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

// GetUserByEmail matches case-insensitively (the email column collates
// NOCASE). It scans up to two rows so duplicates surface as ErrAmbiguous
// instead of silently picking one.
func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 2`, email)
	if err != nil {
		return domain.User{}, err
	}
	defer rows.Close()

	var (
		u     domain.User
		count int
	)
	for rows.Next() {
		count++
		if count > 1 {
			return domain.User{}, store.ErrAmbiguous
		}
		if u, err = scanUser(rows); err != nil {
			return domain.User{}, err
		}
	}
	if err := rows.Err(); err != nil {
		return domain.User{}, err
	}
	if count == 0 {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, email, password_hash, first_name, last_name, phone, role_id,
			is_active, is_staff, is_superuser, is_verified, two_factor_enabled,
			date_joined, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone,
		mapOptionalString(u.RoleID),
		u.IsActive, u.IsStaff, u.IsSuperuser, u.IsVerified, u.TwoFactorEnabled,
		u.DateJoined, u.CreatedAt, u.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateProfile(ctx context.Context, userID, firstName, lastName, phone string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET first_name = ?, last_name = ?, phone = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		firstName, lastName, phone, userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) UpdateRole(ctx context.Context, userID string, roleID *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET role_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		mapOptionalString(roleID), userID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		newHash, userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET last_login = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		at, userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active, userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetTwoFactorEnabled(ctx context.Context, userID string, enabled bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET two_factor_enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		enabled, userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// requireRow maps zero affected rows to ErrNotFound for point updates/deletes.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
