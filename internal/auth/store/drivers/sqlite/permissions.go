package sqlite

import (
	"context"

	"github.com/laqq/authd/internal/auth/domain"
)

type permissionsRepo struct {
	db dbtx
}

const permissionColumns = `id, module, action, codename, description, is_active, created_at`

func scanPermission(row interface{ Scan(...any) error }) (domain.Permission, error) {
	var p domain.Permission
	err := row.Scan(&p.ID, &p.Module, &p.Action, &p.Codename, &p.Description, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return domain.Permission{}, err
	}
	return p, nil
}

func (r *permissionsRepo) GetPermissionByID(ctx context.Context, id string) (domain.Permission, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE id = ?`, id)
	p, err := scanPermission(row)
	if err != nil {
		return domain.Permission{}, mapNotFound(err)
	}
	return p, nil
}

func (r *permissionsRepo) GetPermissionByCodename(ctx context.Context, codename string) (domain.Permission, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE codename = ?`, codename)
	p, err := scanPermission(row)
	if err != nil {
		return domain.Permission{}, mapNotFound(err)
	}
	return p, nil
}

func (r *permissionsRepo) ListAll(ctx context.Context) ([]domain.Permission, error) {
	return r.list(ctx, `SELECT `+permissionColumns+` FROM permissions ORDER BY module, action`)
}

func (r *permissionsRepo) ListActive(ctx context.Context) ([]domain.Permission, error) {
	return r.list(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE is_active = 1 ORDER BY module, action`)
}

func (r *permissionsRepo) list(ctx context.Context, query string) ([]domain.Permission, error) {
	rows, err := r.db.QueryContext(ctx, query)
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

func (r *permissionsRepo) CreatePermission(ctx context.Context, p domain.Permission) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO permissions (id, module, action, codename, description, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Module, p.Action, p.Codename, p.Description, p.IsActive, p.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *permissionsRepo) SetActive(ctx context.Context, permissionID string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE permissions SET is_active = ? WHERE id = ?`, active, permissionID)
	if err != nil {
		return err
	}
	return requireRow(res)
}
