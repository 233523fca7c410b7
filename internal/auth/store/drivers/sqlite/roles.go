package sqlite

import (
	"context"

	"github.com/laqq/authd/internal/auth/domain"
)

type rolesRepo struct {
	db dbtx
}

const roleColumns = `id, name, description, is_active, created_at, updated_at`

func scanRole(row interface{ Scan(...any) error }) (domain.Role, error) {
	var r domain.Role
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return domain.Role{}, err
	}
	return r, nil
}

func (r *rolesRepo) GetRoleByID(ctx context.Context, id string) (domain.Role, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = ?`, id)
	role, err := scanRole(row)
	if err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	return role, nil
}

func (r *rolesRepo) GetRoleByName(ctx context.Context, name string) (domain.Role, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE name = ?`, name)
	role, err := scanRole(row)
	if err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	return role, nil
}

func (r *rolesRepo) ListAll(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *rolesRepo) CreateRole(ctx context.Context, role domain.Role) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO roles (id, name, description, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		role.ID, role.Name, role.Description, role.IsActive, role.CreatedAt, role.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *rolesRepo) UpdateRole(ctx context.Context, roleID, description string, isActive bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE roles
		SET description = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		description, isActive, roleID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteRole is blocked (ErrProtected) while any user still holds the role;
// role_permissions rows cascade away with it.
func (r *rolesRepo) DeleteRole(ctx context.Context, roleID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = ?`, roleID)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}
