package service

import (
	"context"
	"database/sql"

	"guacaman/internal/db/repository"
	"guacaman/internal/domain"
)

// CreateUser creates an account and optionally enrolls it in existing
// usergroups. All memberships are resolved before anything is written, so a
// misspelled group name leaves no partial account behind.
func (s *Service) CreateUser(ctx context.Context, name, password string, groups []string) error {
	if name == "" {
		return domain.ErrUsage("user name is required")
	}
	err := s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		resolver := repository.NewResolver(tx)
		for _, g := range groups {
			if _, err := resolver.Resolve(ctx, domain.KindUserGroup, domain.ByName(g)); err != nil {
				return err
			}
		}
		if _, err := repository.NewUserRepo(tx).Create(ctx, name, password); err != nil {
			return err
		}
		ugRepo := repository.NewUserGroupRepo(tx)
		for _, g := range groups {
			if err := ugRepo.AddMember(ctx, domain.ByName(g), name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Debug("user created", "name", name, "groups", len(groups))
	return nil
}

// DeleteUser removes the account with its memberships and permissions.
func (s *Service) DeleteUser(ctx context.Context, name string) error {
	return s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		return repository.NewUserRepo(tx).Delete(ctx, name)
	})
}

// UserExists reports whether the named account exists.
func (s *Service) UserExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		exists, err = repository.NewResolver(tx).Exists(ctx, domain.KindUser, domain.ByName(name))
		return err
	})
	return exists, err
}

// ListUsers returns all accounts with their group memberships.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		users, err = repository.NewUserRepo(tx).List(ctx)
		return err
	})
	return users, err
}

// UserChanges collects everything `user modify` may do in one invocation.
type UserChanges struct {
	Password   *string
	Attributes map[string]string
	AddGroups  []string
	RmGroups   []string
}

// ModifyUser applies the requested changes atomically.
func (s *Service) ModifyUser(ctx context.Context, name string, ch UserChanges) error {
	return s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		users := repository.NewUserRepo(tx)
		groups := repository.NewUserGroupRepo(tx)
		resolver := repository.NewResolver(tx)

		if _, err := resolver.Resolve(ctx, domain.KindUser, domain.ByName(name)); err != nil {
			return err
		}
		for _, g := range append(append([]string{}, ch.AddGroups...), ch.RmGroups...) {
			if _, err := resolver.Resolve(ctx, domain.KindUserGroup, domain.ByName(g)); err != nil {
				return err
			}
		}

		if ch.Password != nil {
			if err := users.SetPassword(ctx, name, *ch.Password); err != nil {
				return err
			}
		}
		for attr, value := range ch.Attributes {
			if err := users.SetAttribute(ctx, name, attr, value); err != nil {
				return err
			}
		}
		for _, g := range ch.AddGroups {
			if err := groups.AddMember(ctx, domain.ByName(g), name); err != nil {
				return err
			}
		}
		for _, g := range ch.RmGroups {
			if err := groups.RemoveMember(ctx, domain.ByName(g), name); err != nil {
				return err
			}
		}
		return nil
	})
}
