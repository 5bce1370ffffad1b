package service

import (
	"context"
	"database/sql"

	"guacaman/internal/db/repository"
	"guacaman/internal/domain"
)

// CreateUserGroup creates a group and optionally enrolls existing users.
// Every member is resolved before the group row is written.
func (s *Service) CreateUserGroup(ctx context.Context, name string, members []string) error {
	if name == "" {
		return domain.ErrUsage("usergroup name is required")
	}
	return s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		resolver := repository.NewResolver(tx)
		for _, m := range members {
			if _, err := resolver.Resolve(ctx, domain.KindUser, domain.ByName(m)); err != nil {
				return err
			}
		}
		repo := repository.NewUserGroupRepo(tx)
		if _, err := repo.Create(ctx, name); err != nil {
			return err
		}
		for _, m := range members {
			if err := repo.AddMember(ctx, domain.ByName(name), m); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteUserGroup removes the group, its memberships, and its permissions.
// Member users are left alone.
func (s *Service) DeleteUserGroup(ctx context.Context, sel domain.Selector) error {
	return s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		return repository.NewUserGroupRepo(tx).Delete(ctx, sel)
	})
}

// UserGroupExists reports whether the selected group exists.
func (s *Service) UserGroupExists(ctx context.Context, sel domain.Selector) (bool, error) {
	var exists bool
	err := s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		exists, err = repository.NewResolver(tx).Exists(ctx, domain.KindUserGroup, sel)
		return err
	})
	return exists, err
}

// ListUserGroups returns all groups with their members.
func (s *Service) ListUserGroups(ctx context.Context) ([]domain.UserGroup, error) {
	var groups []domain.UserGroup
	err := s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		groups, err = repository.NewUserGroupRepo(tx).List(ctx)
		return err
	})
	return groups, err
}

// UserGroupChanges collects the membership edits of one `group modify` call.
type UserGroupChanges struct {
	AddUsers []string
	RmUsers  []string
}

// ModifyUserGroup applies membership changes atomically. Every referenced
// user is resolved before the first edit, so one bad name rejects the whole
// batch.
func (s *Service) ModifyUserGroup(ctx context.Context, sel domain.Selector, ch UserGroupChanges) error {
	return s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		resolver := repository.NewResolver(tx)
		if _, err := resolver.Resolve(ctx, domain.KindUserGroup, sel); err != nil {
			return err
		}
		for _, u := range append(append([]string{}, ch.AddUsers...), ch.RmUsers...) {
			if _, err := resolver.Resolve(ctx, domain.KindUser, domain.ByName(u)); err != nil {
				return err
			}
		}

		repo := repository.NewUserGroupRepo(tx)
		for _, u := range ch.AddUsers {
			if err := repo.AddMember(ctx, sel, u); err != nil {
				return err
			}
		}
		for _, u := range ch.RmUsers {
			if err := repo.RemoveMember(ctx, sel, u); err != nil {
				return err
			}
		}
		return nil
	})
}
