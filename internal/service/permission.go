package service

import (
	"context"
	"database/sql"

	"guacaman/internal/db/repository"
	"guacaman/internal/domain"
)

// ListPermissions returns the subjects holding a permission on the selected
// resource.
func (s *Service) ListPermissions(ctx context.Context, sel domain.Selector, rk domain.ResourceKind) (*domain.PermissionList, error) {
	var list *domain.PermissionList
	err := s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		list, err = repository.NewPermissionRepo(tx).List(ctx, sel, rk)
		return err
	})
	return list, err
}
