package service

import (
	"context"

	"github.com/laqq/authd/internal/auth/domain"
	"github.com/laqq/authd/internal/auth/store"
	"github.com/laqq/authd/pkg/slogx"
)

// PermissionService reads the permission matrix provisioned at startup. The
// matrix itself is never edited through the API; the one mutation is the
// active flag, which acts as a kill switch across every role holding the
// permission.
type PermissionService struct {
	Store store.Store
}

func (s *PermissionService) List(ctx context.Context) ([]domain.Permission, error) {
	return s.Store.Permissions().ListAll(ctx)
}

// ListByModule groups the active permissions by module for UI consumption.
func (s *PermissionService) ListByModule(ctx context.Context) (map[domain.Module][]domain.Permission, error) {
	perms, err := s.Store.Permissions().ListActive(ctx)
	if err != nil {
		return nil, err
	}
	grouped := make(map[domain.Module][]domain.Permission, len(domain.Modules))
	for _, p := range perms {
		grouped[p.Module] = append(grouped[p.Module], p)
	}
	return grouped, nil
}

func (s *PermissionService) GetByCodename(ctx context.Context, codename string) (domain.Permission, error) {
	p, err := s.Store.Permissions().GetPermissionByCodename(ctx, codename)
	if err != nil {
		return domain.Permission{}, mapStoreNotFound(err)
	}
	return p, nil
}

// SetActive flips a permission's active flag. Deactivating leaves every
// grant row in place but makes all checks for the permission answer false
// until it is reactivated.
func (s *PermissionService) SetActive(ctx context.Context, permissionID string, active bool) error {
	if err := s.Store.Permissions().SetActive(ctx, permissionID, active); err != nil {
		return mapStoreNotFound(err)
	}
	slogx.FromContext(ctx).Info("permission active flag changed",
		"permission_id", permissionID, "active", active)
	return nil
}
