package service

import (
	"context"
	"database/sql"

	"guacaman/internal/db/repository"
	"guacaman/internal/domain"
)

// CreateConnGroup creates a group under the given parent, or at the root
// when parent is nil.
func (s *Service) CreateConnGroup(ctx context.Context, name string, parent *domain.Selector) error {
	if name == "" {
		return domain.ErrUsage("connection group name is required")
	}
	return s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		_, err := repository.NewConnGroupRepo(tx, s.store.Dialect).Create(ctx, name, parent)
		return err
	})
}

// DeleteConnGroup removes the group; its child groups and member connections
// are reattached to the root rather than deleted.
func (s *Service) DeleteConnGroup(ctx context.Context, sel domain.Selector) error {
	return s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		return repository.NewConnGroupRepo(tx, s.store.Dialect).Delete(ctx, sel)
	})
}

// ConnGroupExists reports whether the selected group exists.
func (s *Service) ConnGroupExists(ctx context.Context, sel domain.Selector) (bool, error) {
	var exists bool
	err := s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		exists, err = repository.NewResolver(tx).Exists(ctx, domain.KindConnGroup, sel)
		return err
	})
	return exists, err
}

// ListConnGroups returns all groups with parent names and member connections.
func (s *Service) ListConnGroups(ctx context.Context) ([]domain.ConnectionGroup, error) {
	var groups []domain.ConnectionGroup
	err := s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		groups, err = repository.NewConnGroupRepo(tx, s.store.Dialect).List(ctx)
		return err
	})
	return groups, err
}

// GetConnGroup returns one group by selector.
func (s *Service) GetConnGroup(ctx context.Context, sel domain.Selector) (*domain.ConnectionGroup, error) {
	var group *domain.ConnectionGroup
	err := s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		id, err := repository.NewResolver(tx).Resolve(ctx, domain.KindConnGroup, sel)
		if err != nil {
			return err
		}
		group, err = repository.NewConnGroupRepo(tx, s.store.Dialect).Get(ctx, id)
		return err
	})
	return group, err
}

// ConnGroupChanges collects everything `conngroup modify` may do in one
// invocation. Parent moves the group (SetParent says whether Parent was given
// at all, so nil Parent with SetParent true detaches to the root). AddConns
// and RmConns attach or detach member connections by name or ID.
type ConnGroupChanges struct {
	SetParent   bool
	Parent      *domain.Selector
	AddConns    []domain.Selector
	RmConns     []domain.Selector
	Permit      string
	Deny        string
	SubjectKind domain.SubjectType
}

// ModifyConnGroup applies hierarchy and permission changes atomically. Every
// referenced connection is resolved before the first write, so one bad name
// rejects the whole batch.
func (s *Service) ModifyConnGroup(ctx context.Context, sel domain.Selector, ch ConnGroupChanges) error {
	return s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		resolver := repository.NewResolver(tx)
		groupID, err := resolver.Resolve(ctx, domain.KindConnGroup, sel)
		if err != nil {
			return err
		}

		addIDs := make([]int64, 0, len(ch.AddConns))
		for _, cs := range ch.AddConns {
			id, err := resolver.Resolve(ctx, domain.KindConn, cs)
			if err != nil {
				return err
			}
			addIDs = append(addIDs, id)
		}
		rmIDs := make([]int64, 0, len(ch.RmConns))
		for _, cs := range ch.RmConns {
			id, err := resolver.Resolve(ctx, domain.KindConn, cs)
			if err != nil {
				return err
			}
			rmIDs = append(rmIDs, id)
		}

		groups := repository.NewConnGroupRepo(tx, s.store.Dialect)
		if ch.SetParent {
			if err := groups.Reparent(ctx, domain.ByID(groupID), ch.Parent); err != nil {
				return err
			}
		}

		conns := repository.NewConnRepo(tx)
		for _, id := range addIDs {
			if err := conns.SetParent(ctx, domain.ByID(id), &groupID); err != nil {
				return err
			}
		}
		for _, id := range rmIDs {
			if err := conns.SetParent(ctx, domain.ByID(id), nil); err != nil {
				return err
			}
		}

		perms := repository.NewPermissionRepo(tx)
		if ch.Permit != "" {
			if err := perms.Grant(ctx, ch.Permit, ch.SubjectKind, domain.ByID(groupID), domain.ResourceConnGroup); err != nil {
				return err
			}
		}
		if ch.Deny != "" {
			if err := perms.Revoke(ctx, ch.Deny, ch.SubjectKind, domain.ByID(groupID), domain.ResourceConnGroup); err != nil {
				return err
			}
		}
		return nil
	})
}
