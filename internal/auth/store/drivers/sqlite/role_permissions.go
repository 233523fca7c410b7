package sqlite

import (
	"context"
	"database/sql"

	"github.com/laqq/authd/internal/auth/domain"
)

type rolePermissionsRepo struct {
	db dbtx
}

// Grant is idempotent: granting an already-granted permission leaves the
// original row (and its granted_at/granted_by) untouched.
func (r *rolePermissionsRepo) Grant(ctx context.Context, rp domain.RolePermission) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO role_permissions (id, role_id, permission_id, granted_at, granted_by)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (role_id, permission_id) DO NOTHING`,
		rp.ID, rp.RoleID, rp.PermissionID, rp.GrantedAt, mapOptionalString(rp.GrantedBy),
	)
	if err != nil {
		return false, mapConstraint(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *rolePermissionsRepo) Revoke(ctx context.Context, roleID, permissionID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM role_permissions WHERE role_id = ? AND permission_id = ?`,
		roleID, permissionID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *rolePermissionsRepo) ListByRole(ctx context.Context, roleID string) ([]domain.RolePermission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, role_id, permission_id, granted_at, granted_by
		FROM role_permissions
		WHERE role_id = ?
		ORDER BY granted_at, id`,
		roleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []domain.RolePermission
	for rows.Next() {
		var (
			rp        domain.RolePermission
			grantedBy sql.NullString
		)
		if err := rows.Scan(&rp.ID, &rp.RoleID, &rp.PermissionID, &rp.GrantedAt, &grantedBy); err != nil {
			return nil, err
		}
		rp.GrantedBy = mapNullStringPtr(grantedBy)
		grants = append(grants, rp)
	}
	return grants, rows.Err()
}

func (r *rolePermissionsRepo) ListActivePermissionsForRole(ctx context.Context, roleID string) ([]domain.Permission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.module, p.action, p.codename, p.description, p.is_active, p.created_at
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		JOIN roles r ON r.id = rp.role_id
		WHERE rp.role_id = ? AND p.is_active = 1 AND r.is_active = 1
		ORDER BY p.module, p.action`,
		roleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []domain.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// HasActivePermission is the single authorization query: one EXISTS over the
// grant join, requiring both the role and the permission to be active.
func (r *rolePermissionsRepo) HasActivePermission(ctx context.Context, roleID string, module domain.Module, action domain.Action) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM role_permissions rp
			JOIN permissions p ON p.id = rp.permission_id
			JOIN roles r ON r.id = rp.role_id
			WHERE rp.role_id = ?
			  AND p.module = ?
			  AND p.action = ?
			  AND p.is_active = 1
			  AND r.is_active = 1
		)`,
		roleID, module, action,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
